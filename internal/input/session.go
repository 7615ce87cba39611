package input

// Session is one open display connection able to inject synthetic events.
type Session interface {
	// KeysymToKeycode returns 0 when the keysym is not on the keyboard.
	KeysymToKeycode(keysym uint32) byte
	FakeKey(keycode byte, press bool) error
	FakeMotion(x, y int32) error
	FakeButton(button byte, press bool) error
	Close()
}

// Opener opens a fresh Session. Sessions are never shared between calls.
type Opener func() (Session, error)
