package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/1broseidon/xdesk/internal/capture"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the daemon listening on socketPath.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// WithTimeout returns a copy of c with a different per-request deadline.
func (c *Client) WithTimeout(d time.Duration) *Client {
	cp := *c
	cp.timeout = d
	return &cp
}

// roundTrip sends a request and reads the response line. handle gets the
// reader positioned at whatever follows the line.
func (c *Client) roundTrip(command CommandType, payload any, handle func(*Response, *bufio.Reader) error) error {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	req := Request{ID: uuid.New().String(), Command: command}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		req.Payload = raw
	}

	reqData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == StatusError {
		return fmt.Errorf("daemon error: %s", resp.Error)
	}

	if handle == nil {
		return nil
	}
	return handle(&resp, reader)
}

func (c *Client) call(command CommandType, payload any, out any) error {
	return c.roundTrip(command, payload, func(resp *Response, _ *bufio.Reader) error {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("failed to parse %s data: %w", command, err)
		}
		return nil
	})
}

// Capture asks the daemon for a frame. An empty mode uses the daemon default.
func (c *Client) Capture(mode string) (*CaptureData, []byte, error) {
	var (
		header CaptureData
		pixels []byte
	)
	err := c.roundTrip(CommandCapture, ModePayload{Mode: mode}, func(resp *Response, r *bufio.Reader) error {
		if err := json.Unmarshal(resp.Data, &header); err != nil {
			return fmt.Errorf("failed to parse capture header: %w", err)
		}
		if header.Size < 0 || header.Size != header.Geometry.BufferSize() {
			return fmt.Errorf("capture header size %d does not match geometry %dx%d@%dbpp",
				header.Size, header.Width, header.Height, header.BitsPerPixel)
		}
		pixels = make([]byte, header.Size)
		if _, err := io.ReadFull(r, pixels); err != nil {
			return fmt.Errorf("failed to read %d pixel bytes: %w", header.Size, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &header, pixels, nil
}

// Frame is Capture returning a capture.Frame.
func (c *Client) Frame(mode string) (*capture.Frame, error) {
	header, pixels, err := c.Capture(mode)
	if err != nil {
		return nil, err
	}
	return &capture.Frame{Geometry: header.Geometry, Data: pixels}, nil
}

// Geometry returns the daemon's cached geometry for mode.
func (c *Client) Geometry(mode string) (*GeometryData, error) {
	var data GeometryData
	if err := c.call(CommandGetGeometry, ModePayload{Mode: mode}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SendKey presses or releases the key producing keysym. The bool reports
// whether the daemon delivered the event; it is false without an error when
// the keysym is not on the keyboard or no display is reachable.
func (c *Client) SendKey(keysym uint32, pressed bool) (bool, error) {
	return c.sendKey(SendKeyPayload{Keysym: keysym, Pressed: pressed})
}

// SendKeyName is SendKey with the key given by name, resolved by the daemon.
// Unknown names are returned as errors.
func (c *Client) SendKeyName(name string, pressed bool) (bool, error) {
	return c.sendKey(SendKeyPayload{Key: name, Pressed: pressed})
}

func (c *Client) sendKey(p SendKeyPayload) (bool, error) {
	var data InputData
	err := c.call(CommandSendKey, p, &data)
	return data.Delivered, err
}

// SendMotion moves the pointer to absolute screen coordinates.
func (c *Client) SendMotion(x, y int32) (bool, error) {
	var data InputData
	err := c.call(CommandSendMotion, SendMotionPayload{X: x, Y: y}, &data)
	return data.Delivered, err
}

// SendButton sends a pointer button event. Scroll masks are a full click
// regardless of pressed; a zero mask is never delivered.
func (c *Client) SendButton(mask int32, pressed bool) (bool, error) {
	var data InputData
	err := c.call(CommandSendButton, SendButtonPayload{Mask: mask, Pressed: pressed}, &data)
	return data.Delivered, err
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetMonitors retrieves monitor information
func (c *Client) GetMonitors() (*MonitorsData, error) {
	var monitors MonitorsData
	if err := c.call(CommandGetMonitors, nil, &monitors); err != nil {
		return nil, err
	}
	return &monitors, nil
}

// ListWindows retrieves the top-level windows
func (c *Client) ListWindows() (*WindowsData, error) {
	var windows WindowsData
	if err := c.call(CommandListWindows, nil, &windows); err != nil {
		return nil, err
	}
	return &windows, nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}
