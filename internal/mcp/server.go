package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/xdesk/internal/capture"
	"github.com/1broseidon/xdesk/internal/config"
	"github.com/1broseidon/xdesk/internal/keysym"
	"github.com/1broseidon/xdesk/internal/x11"
)

const (
	ServerName    = "xdesk"
	ServerVersion = "0.1.0"
)

// Capturer reads frames and cached geometry.
type Capturer interface {
	Capture(mode capture.Mode) (*capture.Frame, error)
	Geometry(mode capture.Mode) capture.Geometry
}

// Injector sends synthetic input.
type Injector interface {
	SendKey(keysym uint32, pressed bool) bool
	SendMotion(x, y int32) bool
	SendButton(mask int32, pressed bool) bool
}

// Inspector answers diagnostic queries.
type Inspector interface {
	Monitors() ([]x11.Monitor, error)
	Windows() ([]x11.WindowInfo, error)
}

// Server is the MCP server exposing capture and input over stdio.
type Server struct {
	mcpServer *mcpsdk.Server
	config    *config.Config
	capturer  Capturer
	injector  Injector
	inspector Inspector
	logger    *slog.Logger
}

// NewServer creates the MCP server. Input tools are only registered when
// injector is non-nil and mcp.allow_input is on.
func NewServer(cfg *config.Config, capturer Capturer, injector Injector, inspector Inspector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		config:    cfg,
		capturer:  capturer,
		injector:  injector,
		inspector: inspector,
		logger:    logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) inputAllowed() bool {
	return s.injector != nil && s.config.MCP.GetAllowInput() && s.config.Input.GetEnabled()
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "capture_screen",
		Description: "Capture the X display as a raw pixel buffer. Returns width, height, depth, bits_per_pixel and the pixels base64-encoded: row-major, bits_per_pixel/8 bytes per pixel, no padding, no header, in the server's native pixel format (typically BGRX for depth 24). Bounded mode sizes the image to the widest and tallest visible top-level windows; full mode uses the whole display.",
	}, s.handleCaptureScreen)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_geometry",
		Description: "Return the capture geometry (width, height, depth, bits_per_pixel) for a mode. The value is measured once and cached for the lifetime of the server; zeros mean the display could not be reached.",
	}, s.handleGetGeometry)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_monitors",
		Description: "List the display's monitors (RandR CRTCs) with position and size.",
	}, s.handleListMonitors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List the root window's top-level children with map state, size, class and title.",
	}, s.handleListWindows)

	if !s.inputAllowed() {
		return
	}

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "send_key",
		Description: "Press or release a key, given as an X11 keysym or a key name. Keys not on the keyboard are dropped and reported as delivered=false.",
	}, s.handleSendKey)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "send_motion",
		Description: "Move the pointer to absolute screen coordinates.",
	}, s.handleSendMotion)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "send_button",
		Description: "Send a pointer button event. Mask 16 scrolls down and 8 scrolls up (always a full click); 4 is the right button; any other non-zero mask is used as the button number; 0 does nothing.",
	}, s.handleSendButton)
}

func (s *Server) resolveMode(name string) (capture.Mode, error) {
	if name == "" {
		name = s.config.Capture.DefaultMode
	}
	return capture.ParseMode(name)
}

func (s *Server) handleCaptureScreen(_ context.Context, _ *mcpsdk.CallToolRequest, args CaptureScreenInput) (*mcpsdk.CallToolResult, CaptureScreenOutput, error) {
	mode, err := s.resolveMode(args.Mode)
	if err != nil {
		return nil, CaptureScreenOutput{}, err
	}

	frame, err := s.capturer.Capture(mode)
	if err != nil {
		return nil, CaptureScreenOutput{}, fmt.Errorf("capture failed: %w", err)
	}
	s.logger.Debug("capture_screen", "mode", mode, "width", frame.Width, "height", frame.Height, "bytes", frame.Size())

	return nil, CaptureScreenOutput{
		Mode:         mode.String(),
		Width:        frame.Width,
		Height:       frame.Height,
		Depth:        frame.Depth,
		BitsPerPixel: frame.BitsPerPixel,
		Size:         frame.Size(),
		Pixels:       base64.StdEncoding.EncodeToString(frame.Data),
	}, nil
}

func (s *Server) handleGetGeometry(_ context.Context, _ *mcpsdk.CallToolRequest, args GetGeometryInput) (*mcpsdk.CallToolResult, GetGeometryOutput, error) {
	mode, err := s.resolveMode(args.Mode)
	if err != nil {
		return nil, GetGeometryOutput{}, err
	}
	g := s.capturer.Geometry(mode)
	return nil, GetGeometryOutput{
		Mode:         mode.String(),
		Width:        g.Width,
		Height:       g.Height,
		Depth:        g.Depth,
		BitsPerPixel: g.BitsPerPixel,
	}, nil
}

func (s *Server) handleListMonitors(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListMonitorsInput) (*mcpsdk.CallToolResult, ListMonitorsOutput, error) {
	monitors, err := s.inspector.Monitors()
	if err != nil {
		return nil, ListMonitorsOutput{}, fmt.Errorf("failed to get monitors: %w", err)
	}
	return nil, ListMonitorsOutput{Monitors: monitors}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	windows, err := s.inspector.Windows()
	if err != nil {
		return nil, ListWindowsOutput{}, fmt.Errorf("failed to list windows: %w", err)
	}
	return nil, ListWindowsOutput{Windows: windows}, nil
}

func (s *Server) handleSendKey(_ context.Context, _ *mcpsdk.CallToolRequest, args SendKeyInput) (*mcpsdk.CallToolResult, SendInputOutput, error) {
	ks, err := keysym.Resolve(args.Key, args.Keysym)
	if err != nil {
		return nil, SendInputOutput{}, err
	}
	delivered := s.injector.SendKey(ks, args.Pressed)
	s.logger.Debug("send_key", "keysym", ks, "key", args.Key, "pressed", args.Pressed, "delivered", delivered)
	return nil, SendInputOutput{Delivered: delivered}, nil
}

func (s *Server) handleSendMotion(_ context.Context, _ *mcpsdk.CallToolRequest, args SendMotionInput) (*mcpsdk.CallToolResult, SendInputOutput, error) {
	delivered := s.injector.SendMotion(args.X, args.Y)
	s.logger.Debug("send_motion", "x", args.X, "y", args.Y, "delivered", delivered)
	return nil, SendInputOutput{Delivered: delivered}, nil
}

func (s *Server) handleSendButton(_ context.Context, _ *mcpsdk.CallToolRequest, args SendButtonInput) (*mcpsdk.CallToolResult, SendInputOutput, error) {
	delivered := s.injector.SendButton(args.Mask, args.Pressed)
	s.logger.Debug("send_button", "mask", args.Mask, "pressed", args.Pressed, "delivered", delivered)
	return nil, SendInputOutput{Delivered: delivered}, nil
}
