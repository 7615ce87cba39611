package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil/keybind"
)

// KeysymToKeycode finds the keycode that produces keysym, scanning the
// keyboard mapping one column at a time the way Xlib does. Returns 0 when
// the keysym is not on the keyboard.
func (c *Connection) KeysymToKeycode(keysym uint32) byte {
	if !c.keybindReady {
		keybind.Initialize(c.XUtil)
		c.keybindReady = true
	}
	keyMap := keybind.KeyMapGet(c.XUtil)
	if keyMap == nil {
		return 0
	}

	setup := xproto.Setup(c.XUtil.Conn())
	minCode, maxCode := int(setup.MinKeycode), int(setup.MaxKeycode)
	perKeycode := int(keyMap.KeysymsPerKeycode)
	lookup := func(code, col int) xproto.Keysym {
		if (code-minCode)*perKeycode+col >= len(keyMap.Keysyms) {
			return 0
		}
		return keybind.KeysymGet(c.XUtil, xproto.Keycode(code), byte(col))
	}

	return keycodeFromMapping(lookup, perKeycode, minCode, maxCode, xproto.Keysym(keysym))
}

// keycodeFromMapping returns the lowest keycode carrying want in the lowest
// column. lookup yields NoSymbol for slots outside the mapping.
func keycodeFromMapping(lookup func(code, col int) xproto.Keysym, perKeycode, minCode, maxCode int, want xproto.Keysym) byte {
	if perKeycode <= 0 || want == 0 {
		return 0
	}
	for col := 0; col < perKeycode; col++ {
		for code := minCode; code <= maxCode; code++ {
			if lookup(code, col) == want {
				return byte(code)
			}
		}
	}
	return 0
}

// FakeKey injects a key press or release with zero delay.
func (c *Connection) FakeKey(keycode byte, press bool) error {
	eventType := byte(xproto.KeyRelease)
	if press {
		eventType = xproto.KeyPress
	}
	return c.fakeInput(eventType, keycode, 0, 0, 0)
}

// FakeMotion warps the pointer to absolute coordinates on the default screen.
func (c *Connection) FakeMotion(x, y int32) error {
	// Detail 0 selects absolute motion.
	return c.fakeInput(xproto.MotionNotify, 0, c.Root, int16(x), int16(y))
}

// FakeButton injects a pointer button press or release with zero delay.
func (c *Connection) FakeButton(button byte, press bool) error {
	eventType := byte(xproto.ButtonRelease)
	if press {
		eventType = xproto.ButtonPress
	}
	return c.fakeInput(eventType, button, 0, 0, 0)
}

// fakeInput sends a checked XTEST FakeInput so the event reaches the server
// before the connection is closed.
func (c *Connection) fakeInput(eventType, detail byte, root xproto.Window, x, y int16) error {
	if !c.xtestReady {
		if err := xtest.Init(c.XUtil.Conn()); err != nil {
			return fmt.Errorf("XTEST extension unavailable: %w", err)
		}
		c.xtestReady = true
	}

	err := xtest.FakeInputChecked(
		c.XUtil.Conn(),
		eventType,
		detail,
		0, // CurrentTime, no delay
		root,
		x, y,
		0,
	).Check()
	if err != nil {
		return fmt.Errorf("fake input type %d detail %d: %w", eventType, detail, err)
	}
	return nil
}
