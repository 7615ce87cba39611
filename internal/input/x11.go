package input

import "github.com/1broseidon/xdesk/internal/x11"

// X11Opener opens input sessions on an X display ("" means $DISPLAY).
func X11Opener(display string) Opener {
	return func() (Session, error) {
		conn, err := x11.NewConnection(display)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}
