// Package input injects synthetic keyboard and pointer events into an X
// display through the XTEST extension.
//
// Failures never surface as errors. Each operation reports whether its
// events reached the server, and a display that cannot be opened turns every
// operation into a no-op.
package input

import (
	"fmt"
	"io"
	"log/slog"
)

// Synthesizer sends events, opening and closing one session per call.
// It holds no display state and is safe for concurrent use.
type Synthesizer struct {
	open   Opener
	logger *slog.Logger
}

// NewSynthesizer creates a synthesizer. A nil logger discards log output.
func NewSynthesizer(open Opener, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Synthesizer{open: open, logger: logger}
}

// SendKey presses or releases the key producing keysym. A keysym that is not
// on the keyboard is dropped and reported as not delivered.
func (s *Synthesizer) SendKey(keysym uint32, pressed bool) bool {
	sess, ok := s.session("key")
	if !ok {
		return false
	}
	defer sess.Close()

	keycode := sess.KeysymToKeycode(keysym)
	if keycode == 0 {
		s.logger.Debug("keysym not mapped, dropping event", "keysym", fmt.Sprintf("%#x", keysym))
		return false
	}
	if err := sess.FakeKey(keycode, pressed); err != nil {
		s.logger.Debug("key event failed", "keysym", fmt.Sprintf("%#x", keysym), "keycode", keycode, "error", err)
		return false
	}
	return true
}

// SendMotion moves the pointer to absolute coordinates on the default screen.
func (s *Synthesizer) SendMotion(x, y int32) bool {
	sess, ok := s.session("motion")
	if !ok {
		return false
	}
	defer sess.Close()

	if err := sess.FakeMotion(x, y); err != nil {
		s.logger.Debug("motion event failed", "x", x, "y", y, "error", err)
		return false
	}
	return true
}

// SendButton translates mask into native button events and sends them in
// order. A zero mask sends nothing and opens no session.
func (s *Synthesizer) SendButton(mask int32, pressed bool) bool {
	actions := translateButton(mask, pressed)
	if len(actions) == 0 {
		return false
	}

	sess, ok := s.session("button")
	if !ok {
		return false
	}
	defer sess.Close()

	for _, a := range actions {
		if err := sess.FakeButton(a.button, a.press); err != nil {
			s.logger.Debug("button event failed", "mask", fmt.Sprintf("%#x", mask), "button", a.button, "error", err)
			return false
		}
	}
	return true
}

// Send dispatches any Event variant.
func (s *Synthesizer) Send(ev Event) bool {
	switch e := ev.(type) {
	case KeyEvent:
		return s.SendKey(e.Keysym, e.Pressed)
	case MotionEvent:
		return s.SendMotion(e.X, e.Y)
	case ButtonEvent:
		return s.SendButton(e.Mask, e.Pressed)
	default:
		return false
	}
}

func (s *Synthesizer) session(kind string) (Session, bool) {
	sess, err := s.open()
	if err != nil {
		s.logger.Debug("display unavailable, dropping input", "event", kind, "error", err)
		return nil, false
	}
	return sess, true
}
