package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/1broseidon/xdesk/internal/capture"
	"github.com/1broseidon/xdesk/internal/config"
	"github.com/1broseidon/xdesk/internal/input"
	"github.com/1broseidon/xdesk/internal/keysym"
	"github.com/1broseidon/xdesk/internal/x11"
)

const (
	requestReadTimeout   = 10 * time.Second
	responseWriteTimeout = 30 * time.Second
)

// Capturer is the capture side of the daemon.
type Capturer interface {
	Capture(mode capture.Mode) (*capture.Frame, error)
	Geometry(mode capture.Mode) capture.Geometry
}

// Injector is the input side of the daemon.
type Injector interface {
	Send(ev input.Event) bool
}

// Inspector answers the diagnostic queries.
type Inspector interface {
	Monitors() ([]x11.Monitor, error)
	Windows() ([]x11.WindowInfo, error)
}

// Handlers groups the components a Server dispatches to.
type Handlers struct {
	Capturer  Capturer
	Injector  Injector
	Inspector Inspector
}

// Server handles IPC requests from clients
type Server struct {
	socketPath string
	display    string
	listener   net.Listener
	cfg        *config.Config
	cfgMu      sync.RWMutex
	handlers   Handlers
	logger     *slog.Logger
	startTime  time.Time
	reloadChan chan struct{}

	// loadConfig defaults to config.Load and is guarded by cfgMu. peerUID
	// is replaced in tests.
	loadConfig   func() (*config.Config, error)
	peerUID      func(net.Conn) (int, error)
	writeTimeout time.Duration

	shuttingDown bool
	conns        map[net.Conn]struct{}
	shutdownMu   sync.Mutex
	wg           sync.WaitGroup
}

// NewServer creates a new IPC server. reloadChan, if non-nil, is signalled
// after a successful RELOAD.
func NewServer(socketPath, display string, cfg *config.Config, handlers Handlers, reloadChan chan struct{}, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		socketPath: socketPath,
		display:    display,
		cfg:        cfg,
		handlers:   handlers,
		logger:     logger,
		startTime:  time.Now(),
		reloadChan: reloadChan,
		loadConfig: config.Load,
		peerUID:    peerUID,

		writeTimeout: responseWriteTimeout,
		conns:        make(map[net.Conn]struct{}),
	}
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	// Remove a stale socket left by a previous run.
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener and every open connection, waits for their
// handlers to return and removes the socket file. A response still being
// written is cut short.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	for conn := range s.conns {
		conn.Close()
	}
	s.shutdownMu.Unlock()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
	return err
}

// Config returns the current configuration.
func (s *Server) Config() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// SetConfig swaps the configuration used for new requests.
func (s *Server) SetConfig(cfg *config.Config) {
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
}

// SetLoader replaces the function RELOAD uses to read configuration.
func (s *Server) SetLoader(load func() (*config.Config, error)) {
	s.cfgMu.Lock()
	s.loadConfig = load
	s.cfgMu.Unlock()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			shuttingDown := s.shuttingDown
			s.shutdownMu.Unlock()
			if shuttingDown || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		s.shutdownMu.Lock()
		if s.shuttingDown {
			s.shutdownMu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.shutdownMu.Unlock()

		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) untrack(conn net.Conn) {
	s.shutdownMu.Lock()
	delete(s.conns, conn)
	s.shutdownMu.Unlock()
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	uid, err := s.peerUID(conn)
	if err != nil || uid != os.Getuid() {
		s.logger.Warn("IPC rejected peer", "uid", uid, "error", err)
		s.writeResponse(conn, NewErrorResponse("permission denied"), nil)
		return
	}

	conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	req, err := ParseRequest(data)
	if err != nil {
		s.writeResponse(conn, NewErrorResponse(fmt.Sprintf("Invalid request: %v", err)), nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	logger := s.logger.With("request_id", req.ID, "command", req.Command)
	start := time.Now()

	resp, body := s.handleCommand(req, logger)
	resp.ID = req.ID

	if resp.Status == StatusError {
		logger.Info("IPC request failed", "error", resp.Error, "elapsed", time.Since(start))
	} else {
		logger.Debug("IPC request served", "bytes", len(body), "elapsed", time.Since(start))
	}
	s.writeResponse(conn, resp, body)
}

func (s *Server) writeResponse(conn net.Conn, resp *Response, body []byte) {
	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}

	// A peer that stops reading must not pin this goroutine.
	conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	w := bufio.NewWriter(conn)
	w.Write(respData)
	w.WriteByte('\n')
	if len(body) > 0 {
		w.Write(body)
	}
	if err := w.Flush(); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}

// handleCommand processes an IPC command. The returned body, if any, is
// written raw after the response line.
func (s *Server) handleCommand(req *Request, logger *slog.Logger) (*Response, []byte) {
	switch req.Command {
	case CommandCapture:
		return s.handleCapture(req.Payload)
	case CommandGetGeometry:
		return s.handleGetGeometry(req.Payload), nil
	case CommandSendKey:
		var p SendKeyPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error()), nil
		}
		ks, err := keysym.Resolve(p.Key, p.Keysym)
		if err != nil {
			return NewErrorResponse(err.Error()), nil
		}
		return s.handleInput(input.KeyEvent{Keysym: ks, Pressed: p.Pressed}), nil
	case CommandSendMotion:
		var p SendMotionPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error()), nil
		}
		return s.handleInput(input.MotionEvent{X: p.X, Y: p.Y}), nil
	case CommandSendButton:
		var p SendButtonPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error()), nil
		}
		return s.handleInput(input.ButtonEvent{Mask: p.Mask, Pressed: p.Pressed}), nil
	case CommandGetStatus:
		return s.handleGetStatus(), nil
	case CommandGetMonitors:
		return s.handleGetMonitors(), nil
	case CommandListWindows:
		return s.handleListWindows(), nil
	case CommandReload:
		return s.handleReload(logger), nil
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command)), nil
	}
}

// resolveMode falls back to the configured default mode.
func (s *Server) resolveMode(raw json.RawMessage) (capture.Mode, error) {
	var p ModePayload
	if err := decodePayload(raw, &p); err != nil {
		return 0, err
	}
	name := p.Mode
	if name == "" {
		name = s.Config().Capture.DefaultMode
	}
	return capture.ParseMode(name)
}

func (s *Server) handleCapture(payload json.RawMessage) (*Response, []byte) {
	if s.handlers.Capturer == nil {
		return NewErrorResponse("capture is not available"), nil
	}
	mode, err := s.resolveMode(payload)
	if err != nil {
		return NewErrorResponse(err.Error()), nil
	}

	frame, err := s.handlers.Capturer.Capture(mode)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("capture failed: %v", err)), nil
	}

	resp, err := NewOKResponse(CaptureData{
		Mode:     mode.String(),
		Geometry: frame.Geometry,
		Size:     frame.Size(),
	})
	if err != nil {
		return NewErrorResponse(err.Error()), nil
	}
	return resp, frame.Data
}

func (s *Server) handleGetGeometry(payload json.RawMessage) *Response {
	if s.handlers.Capturer == nil {
		return NewErrorResponse("capture is not available")
	}
	mode, err := s.resolveMode(payload)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	resp, _ := NewOKResponse(GeometryData{
		Mode:     mode.String(),
		Geometry: s.handlers.Capturer.Geometry(mode),
	})
	return resp
}

func (s *Server) handleInput(ev input.Event) *Response {
	if s.handlers.Injector == nil || !s.Config().Input.GetEnabled() {
		return NewErrorResponse("input is disabled")
	}
	resp, _ := NewOKResponse(InputData{Delivered: s.handlers.Injector.Send(ev)})
	return resp
}

func (s *Server) handleGetStatus() *Response {
	cfg := s.Config()
	status := StatusData{
		Display:       s.display,
		DefaultMode:   cfg.Capture.DefaultMode,
		InputEnabled:  s.handlers.Injector != nil && cfg.Input.GetEnabled(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: true,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleGetMonitors() *Response {
	if s.handlers.Inspector == nil {
		return NewErrorResponse("inspection is not available")
	}
	monitors, err := s.handlers.Inspector.Monitors()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get monitors: %v", err))
	}
	resp, _ := NewOKResponse(MonitorsData{Monitors: monitors})
	return resp
}

func (s *Server) handleListWindows() *Response {
	if s.handlers.Inspector == nil {
		return NewErrorResponse("inspection is not available")
	}
	windows, err := s.handlers.Inspector.Windows()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to list windows: %v", err))
	}
	resp, _ := NewOKResponse(WindowsData{Windows: windows})
	return resp
}

func (s *Server) handleReload(logger *slog.Logger) *Response {
	s.cfgMu.RLock()
	load := s.loadConfig
	s.cfgMu.RUnlock()

	newCfg, err := load()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}
	s.SetConfig(newCfg)

	// Notify the daemon without blocking.
	if s.reloadChan != nil {
		select {
		case s.reloadChan <- struct{}{}:
		default:
		}
	}

	logger.Info("config reloaded")
	resp, _ := NewOKResponse(nil)
	return resp
}
