// Package xvfb runs a private Xvfb display and applications inside it.
package xvfb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

var (
	// ErrDisplayInUse reports that the display's lock file already exists.
	ErrDisplayInUse = errors.New("display already in use")
	// ErrStartTimeout reports that Xvfb never created its lock file.
	ErrStartTimeout = errors.New("could not start Xvfb")
	// ErrStopTimeout reports that the lock file outlived the server.
	ErrStopTimeout = errors.New("could not stop Xvfb")
)

const stopGrace = 2 * time.Second

// Replaced in tests.
var (
	lockPathFn   = func(number int) string { return fmt.Sprintf("/tmp/.X%d-lock", number) }
	commandFn    = exec.Command
	pollInterval = 10 * time.Millisecond
)

// Size is a screen geometry in Xvfb's WxHxD notation.
type Size struct {
	Width  int
	Height int
	Depth  int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Width, s.Height, s.Depth)
}

// ParseSize accepts "WxHxD" or "WxH" (depth 24).
func ParseSize(s string) (Size, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 && len(parts) != 3 {
		return Size{}, fmt.Errorf("invalid size %q (want WIDTHxHEIGHT[xDEPTH])", s)
	}
	vals := []int{0, 0, 24}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return Size{}, fmt.Errorf("invalid size %q (want WIDTHxHEIGHT[xDEPTH])", s)
		}
		vals[i] = n
	}
	return Size{Width: vals[0], Height: vals[1], Depth: vals[2]}, nil
}

// Server is one Xvfb process.
type Server struct {
	Number         int
	Size           Size
	StartupTimeout time.Duration
	// Stderr receives Xvfb's diagnostics. Nil discards them.
	Stderr io.Writer
	Logger *slog.Logger

	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

// DisplayName returns the X display name, e.g. ":99".
func (s *Server) DisplayName() string {
	return ":" + strconv.Itoa(s.Number)
}

// Args returns the Xvfb command line arguments.
func (s *Server) Args() []string {
	return []string{s.DisplayName(), "-screen", "0", s.Size.String()}
}

// LockPath is the lock file Xvfb creates once the display accepts clients.
func (s *Server) LockPath() string {
	return lockPathFn(s.Number)
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

// Start launches Xvfb and waits until its lock file appears. It refuses to
// start on a display that is already locked.
func (s *Server) Start(ctx context.Context) error {
	if s.cmd != nil {
		return nil
	}
	if lockExists(s.LockPath()) {
		return fmt.Errorf("%s: %w", s.DisplayName(), ErrDisplayInUse)
	}

	cmd := commandFn("Xvfb", s.Args()...)
	cmd.Stderr = s.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch Xvfb: %w", err)
	}
	s.cmd = cmd
	s.done = make(chan struct{})
	go func() {
		s.waitErr = cmd.Wait()
		close(s.done)
	}()

	s.logger().Debug("Xvfb launched", "display", s.DisplayName(), "pid", cmd.Process.Pid, "size", s.Size.String())

	timeout := time.NewTimer(s.StartupTimeout)
	defer timeout.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for !lockExists(s.LockPath()) {
		select {
		case <-s.done:
			s.cmd = nil
			return fmt.Errorf("%w on %s: exited early: %v", ErrStartTimeout, s.DisplayName(), s.waitErr)
		case <-timeout.C:
			s.kill()
			return fmt.Errorf("%w on %s within %s", ErrStartTimeout, s.DisplayName(), s.StartupTimeout)
		case <-ctx.Done():
			s.kill()
			return ctx.Err()
		case <-ticker.C:
		}
	}

	s.logger().Info("virtual display ready", "display", s.DisplayName(), "size", s.Size.String())
	return nil
}

// Pid returns the Xvfb process id, or 0 when not running.
func (s *Server) Pid() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Done is closed when the Xvfb process exits.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Stop terminates Xvfb and waits for its lock file to disappear.
func (s *Server) Stop() error {
	if s.cmd == nil {
		return nil
	}
	s.kill()

	deadline := time.Now().Add(s.StartupTimeout)
	for lockExists(s.LockPath()) {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w on %s: %s still present", ErrStopTimeout, s.DisplayName(), s.LockPath())
		}
		time.Sleep(pollInterval)
	}
	s.logger().Info("virtual display stopped", "display", s.DisplayName())
	return nil
}

// kill sends SIGTERM, escalating to SIGKILL after a grace period, and
// waits for the process to be reaped.
func (s *Server) kill() {
	if s.cmd == nil {
		return
	}
	terminate(s.cmd.Process, s.done)
	s.cmd = nil
}

func terminate(p *os.Process, done <-chan struct{}) {
	select {
	case <-done:
		return
	default:
	}
	p.Signal(syscall.SIGTERM)
	select {
	case <-done:
	case <-time.After(stopGrace):
		p.Kill()
		<-done
	}
}

func lockExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
