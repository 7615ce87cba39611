package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// Connection is a single X11 session. Callers open one per operation and
// close it before returning; connections are never shared between calls.
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	xtestReady   bool
	keybindReady bool
}

// NewConnection opens a session on the given display. An empty display name
// defers to $DISPLAY.
func NewConnection(display string) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to open display %q: %w", display, err)
	}

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// DisplaySize returns the pixel extent of the default screen.
func (c *Connection) DisplaySize() (width, height int) {
	screen := c.XUtil.Screen()
	return int(screen.WidthInPixels), int(screen.HeightInPixels)
}
