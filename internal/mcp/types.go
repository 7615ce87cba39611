package mcp

import "github.com/1broseidon/xdesk/internal/x11"

// CaptureScreenInput is the input for the capture_screen tool.
type CaptureScreenInput struct {
	Mode string `json:"mode,omitempty" jsonschema:"Capture mode: bounded (visible application footprint) or full (whole display). Default: configured capture.default_mode."`
}

// CaptureScreenOutput is the output for the capture_screen tool.
type CaptureScreenOutput struct {
	Mode         string `json:"mode"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Depth        int    `json:"depth"`
	BitsPerPixel int    `json:"bits_per_pixel"`
	Size         int    `json:"size"`
	// Pixels is the raw row-major buffer in the server's native format,
	// base64 encoded.
	Pixels string `json:"pixels"`
}

// GetGeometryInput is the input for the get_geometry tool.
type GetGeometryInput struct {
	Mode string `json:"mode,omitempty" jsonschema:"Capture mode: bounded or full. Default: configured capture.default_mode."`
}

// GetGeometryOutput is the output for the get_geometry tool.
type GetGeometryOutput struct {
	Mode         string `json:"mode"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Depth        int    `json:"depth"`
	BitsPerPixel int    `json:"bits_per_pixel"`
}

// SendKeyInput is the input for the send_key tool.
type SendKeyInput struct {
	Keysym  uint32 `json:"keysym,omitempty" jsonschema:"X11 keysym, e.g. 97 for 'a' or 65293 (0xff0d) for Return. Ignored when key is set"`
	Key     string `json:"key,omitempty" jsonschema:"key name instead of a keysym: an X11 name (Return, Page_Up, F13), a browser key name (Enter, ArrowLeft, Control) or one character"`
	Pressed bool   `json:"pressed" jsonschema:"true for key press, false for key release"`
}

// SendMotionInput is the input for the send_motion tool.
type SendMotionInput struct {
	X int32 `json:"x" jsonschema:"Absolute x coordinate on the default screen"`
	Y int32 `json:"y" jsonschema:"Absolute y coordinate on the default screen"`
}

// SendButtonInput is the input for the send_button tool.
type SendButtonInput struct {
	Mask    int32 `json:"mask" jsonschema:"Button mask: 16 scroll down, 8 scroll up, 4 right button, any other non-zero value is used as the button number"`
	Pressed bool  `json:"pressed" jsonschema:"true for press, false for release. Ignored for scroll masks, which always click."`
}

// SendInputOutput is the output for the send_* tools.
type SendInputOutput struct {
	Delivered bool `json:"delivered"`
}

// ListMonitorsInput is the input for the list_monitors tool.
type ListMonitorsInput struct{}

// ListMonitorsOutput is the output for the list_monitors tool.
type ListMonitorsOutput struct {
	Monitors []x11.Monitor `json:"monitors"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []x11.WindowInfo `json:"windows"`
}
