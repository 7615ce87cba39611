package x11

import (
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// WindowInfo describes one top-level window as seen by the capture sizing.
type WindowInfo struct {
	ID       uint32 `json:"id"`
	Viewable bool   `json:"viewable"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Class    string `json:"class,omitempty"`
	Title    string `json:"title,omitempty"`
}

// TopLevelWindows lists the root's immediate children with their map state,
// size and names.
func (c *Connection) TopLevelWindows() ([]WindowInfo, error) {
	children, err := c.Children(c.Root)
	if err != nil {
		return nil, err
	}

	windows := make([]WindowInfo, 0, len(children))
	for _, windowID := range children {
		attrs, err := c.Attributes(windowID)
		if err != nil {
			continue
		}
		windows = append(windows, WindowInfo{
			ID:       uint32(windowID),
			Viewable: attrs.Viewable,
			Width:    attrs.Width,
			Height:   attrs.Height,
			Class:    c.windowClass(windowID),
			Title:    c.windowTitle(windowID),
		})
	}
	return windows, nil
}

func (c *Connection) windowClass(windowID xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, windowID)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

func (c *Connection) windowTitle(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(c.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(c.XUtil, windowID)
	if err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}
