package capture

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/xdesk/internal/x11"
)

// X11Opener opens capture sessions on an X display ("" means $DISPLAY).
func X11Opener(display string) Opener {
	return func() (Session, error) {
		conn, err := x11.NewConnection(display)
		if err != nil {
			return nil, err
		}
		return x11Session{conn: conn}, nil
	}
}

// x11Session adapts an x11.Connection to Session.
type x11Session struct {
	conn *x11.Connection
}

func (s x11Session) RootWindow() WindowID {
	return WindowID(s.conn.Root)
}

func (s x11Session) DisplaySize() (int, int) {
	return s.conn.DisplaySize()
}

func (s x11Session) Children(parent WindowID) ([]WindowID, error) {
	children, err := s.conn.Children(xproto.Window(parent))
	if err != nil {
		return nil, err
	}
	ids := make([]WindowID, len(children))
	for i, child := range children {
		ids[i] = WindowID(child)
	}
	return ids, nil
}

func (s x11Session) WindowAttributes(window WindowID) (WindowAttributes, error) {
	attrs, err := s.conn.Attributes(xproto.Window(window))
	if err != nil {
		return WindowAttributes{}, err
	}
	return WindowAttributes{
		Viewable: attrs.Viewable,
		Width:    attrs.Width,
		Height:   attrs.Height,
	}, nil
}

func (s x11Session) GetImage(window WindowID, x, y, width, height int) (Image, error) {
	img, err := s.conn.GetImage(xproto.Window(window), x, y, width, height)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (s x11Session) Close() {
	s.conn.Close()
}
