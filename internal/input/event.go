package input

// Event is one of KeyEvent, MotionEvent or ButtonEvent.
type Event interface {
	isEvent()
}

// KeyEvent presses or releases the key producing Keysym. A keysym with no
// keycode on the current keyboard is dropped.
type KeyEvent struct {
	Keysym  uint32
	Pressed bool
}

// MotionEvent warps the pointer to absolute root-window coordinates.
type MotionEvent struct {
	X int32
	Y int32
}

// ButtonEvent is a pointer button change. Mask is translated to an X button
// number by translateButton; scroll masks always produce a full click.
type ButtonEvent struct {
	Mask    int32
	Pressed bool
}

func (KeyEvent) isEvent()    {}
func (MotionEvent) isEvent() {}
func (ButtonEvent) isEvent() {}
