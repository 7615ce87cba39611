package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/xdesk/internal/capture"
	"github.com/1broseidon/xdesk/internal/x11"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandCapture     CommandType = "CAPTURE"
	CommandGetGeometry CommandType = "GET_GEOMETRY"
	CommandSendKey     CommandType = "SEND_KEY"
	CommandSendMotion  CommandType = "SEND_MOTION"
	CommandSendButton  CommandType = "SEND_BUTTON"
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandGetMonitors CommandType = "GET_MONITORS"
	CommandListWindows CommandType = "LIST_WINDOWS"
	CommandReload      CommandType = "RELOAD"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Request represents an IPC request from client to server
type Request struct {
	ID      string          `json:"id,omitempty"`
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client.
//
// A successful CAPTURE response line is followed on the wire by exactly
// CaptureData.Size raw pixel bytes.
type Response struct {
	ID     string          `json:"id,omitempty"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// ModePayload is the payload of CAPTURE and GET_GEOMETRY. An empty mode
// means the daemon's configured default.
type ModePayload struct {
	Mode string `json:"mode,omitempty"`
}

// CaptureData describes the pixel bytes that follow a CAPTURE response.
type CaptureData struct {
	Mode string `json:"mode"`
	capture.Geometry
	Size int `json:"size"`
}

type GeometryData struct {
	Mode string `json:"mode"`
	capture.Geometry
}

// SendKeyPayload names the key by keysym or, when Key is set, by an X11 or
// browser key name.
type SendKeyPayload struct {
	Keysym  uint32 `json:"keysym,omitempty"`
	Key     string `json:"key,omitempty"`
	Pressed bool   `json:"pressed"`
}

type SendMotionPayload struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

type SendButtonPayload struct {
	Mask    int32 `json:"mask"`
	Pressed bool  `json:"pressed"`
}

// InputData reports whether the server accepted the events. False covers
// every silent drop: no display, unmapped keysym, zero mask.
type InputData struct {
	Delivered bool `json:"delivered"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Display       string `json:"display"`
	DefaultMode   string `json:"default_mode"`
	InputEnabled  bool   `json:"input_enabled"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	DaemonRunning bool   `json:"daemon_running"`
}

// MonitorsData represents the data returned by GET_MONITORS
type MonitorsData struct {
	Monitors []x11.Monitor `json:"monitors"`
}

// WindowsData represents the data returned by LIST_WINDOWS
type WindowsData struct {
	Windows []x11.WindowInfo `json:"windows"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: StatusOK,
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: StatusError,
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

func decodePayload(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}
