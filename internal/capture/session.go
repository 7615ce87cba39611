package capture

// WindowID identifies a window within one session.
type WindowID uint32

// WindowAttributes is what region sizing needs to know about a window.
type WindowAttributes struct {
	Viewable bool
	Width    int
	Height   int
}

// Image is a server-side image handed back by a session. Its pixel storage
// is only valid until Release.
type Image interface {
	Format() (depth, bitsPerPixel int)
	Pixels() []byte
	Release()
}

// Session is an open display connection used for exactly one operation.
type Session interface {
	RootWindow() WindowID
	DisplaySize() (width, height int)
	Children(parent WindowID) ([]WindowID, error)
	WindowAttributes(window WindowID) (WindowAttributes, error)
	GetImage(window WindowID, x, y, width, height int) (Image, error)
	Close()
}

// Opener opens a fresh session.
type Opener func() (Session, error)
