package capture

import (
	"bytes"
	"errors"
	"sync"
	"testing"
)

const fakeRoot WindowID = 1

type fakeWindow struct {
	id    WindowID
	attrs WindowAttributes
	err   error
}

type imageRequest struct {
	window              WindowID
	x, y, width, height int
}

// fakeDisplay is an in-memory X server. Each Opener call returns a session
// that records what it was asked to do.
type fakeDisplay struct {
	mu sync.Mutex

	width, height int
	depth, bpp    int
	windows       []fakeWindow
	treeErr       error
	imageErr      error
	shortImage    bool
	openErr       error

	opens    int
	closes   int
	releases int
	requests []imageRequest
	lastSrc  []byte
}

func newFakeDisplay(width, height int) *fakeDisplay {
	return &fakeDisplay{width: width, height: height, depth: 24, bpp: 32}
}

func (d *fakeDisplay) opener() Opener {
	return func() (Session, error) {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.openErr != nil {
			return nil, d.openErr
		}
		d.opens++
		return &fakeSession{d: d}, nil
	}
}

func (d *fakeDisplay) setWindows(windows ...fakeWindow) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.windows = windows
}

func viewable(id WindowID, w, h int) fakeWindow {
	return fakeWindow{id: id, attrs: WindowAttributes{Viewable: true, Width: w, Height: h}}
}

func unmapped(id WindowID, w, h int) fakeWindow {
	return fakeWindow{id: id, attrs: WindowAttributes{Width: w, Height: h}}
}

type fakeSession struct {
	d      *fakeDisplay
	closed bool
}

func (s *fakeSession) RootWindow() WindowID { return fakeRoot }

func (s *fakeSession) DisplaySize() (int, int) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return s.d.width, s.d.height
}

func (s *fakeSession) Children(parent WindowID) ([]WindowID, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if parent != fakeRoot {
		return nil, nil
	}
	if s.d.treeErr != nil {
		return nil, s.d.treeErr
	}
	ids := make([]WindowID, len(s.d.windows))
	for i, w := range s.d.windows {
		ids[i] = w.id
	}
	return ids, nil
}

func (s *fakeSession) WindowAttributes(window WindowID) (WindowAttributes, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, w := range s.d.windows {
		if w.id == window {
			return w.attrs, w.err
		}
	}
	return WindowAttributes{}, errors.New("BadWindow")
}

func (s *fakeSession) GetImage(window WindowID, x, y, width, height int) (Image, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.requests = append(s.d.requests, imageRequest{window, x, y, width, height})
	if s.d.imageErr != nil {
		return nil, s.d.imageErr
	}

	n := s.d.bpp / 8 * width * height
	if s.d.shortImage {
		n--
	}
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	s.d.lastSrc = data
	return &fakeImage{d: s.d, depth: s.d.depth, bpp: s.d.bpp, data: data}, nil
}

func (s *fakeSession) Close() {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.d.closes++
	}
}

type fakeImage struct {
	d          *fakeDisplay
	depth, bpp int
	data       []byte
}

func (img *fakeImage) Format() (int, int) { return img.depth, img.bpp }
func (img *fakeImage) Pixels() []byte     { return img.data }

func (img *fakeImage) Release() {
	// Poison the storage so a copy taken after Release is detectable.
	for i := range img.data {
		img.data[i] = 0xEE
	}
	img.data = nil
	img.d.releases++
}

func (d *fakeDisplay) assertBalanced(t *testing.T) {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.opens != d.closes {
		t.Fatalf("sessions opened %d, closed %d", d.opens, d.closes)
	}
	images := 0
	for range d.requests {
		images++
	}
	if d.imageErr == nil && d.releases != images {
		t.Fatalf("images acquired %d, released %d", images, d.releases)
	}
}

func TestCapture_FullModeUsesDisplayExtent(t *testing.T) {
	d := newFakeDisplay(1920, 1080)
	d.setWindows(viewable(2, 640, 480))
	e := NewEngine(d.opener(), nil)

	frame, err := e.Capture(ModeFull)
	if err != nil {
		t.Fatalf("Capture(full) error: %v", err)
	}
	if frame.Width != 1920 || frame.Height != 1080 {
		t.Fatalf("frame size = %dx%d, want 1920x1080", frame.Width, frame.Height)
	}
	if want := 4 * 1920 * 1080; frame.Size() != want {
		t.Fatalf("frame.Size() = %d, want %d", frame.Size(), want)
	}
	if frame.Depth != 24 || frame.BitsPerPixel != 32 {
		t.Fatalf("frame format = %d/%d, want 24/32", frame.Depth, frame.BitsPerPixel)
	}
	d.assertBalanced(t)
}

func TestCapture_BoundedMaximisesDimensionsIndependently(t *testing.T) {
	d := newFakeDisplay(1920, 1080)
	d.setWindows(
		viewable(2, 800, 300),
		unmapped(3, 1500, 1000),
		viewable(4, 400, 600),
	)
	e := NewEngine(d.opener(), nil)

	frame, err := e.CaptureBounded()
	if err != nil {
		t.Fatalf("CaptureBounded error: %v", err)
	}
	if frame.Width != 800 || frame.Height != 600 {
		t.Fatalf("frame size = %dx%d, want 800x600", frame.Width, frame.Height)
	}
	if want := 4 * 800 * 600; frame.Size() != want {
		t.Fatalf("frame.Size() = %d, want %d", frame.Size(), want)
	}
	d.assertBalanced(t)
}

func TestCapture_BoundedOrderDoesNotMatter(t *testing.T) {
	orders := [][]fakeWindow{
		{viewable(2, 800, 300), viewable(3, 400, 600)},
		{viewable(3, 400, 600), viewable(2, 800, 300)},
	}
	for _, windows := range orders {
		d := newFakeDisplay(1920, 1080)
		d.setWindows(windows...)
		e := NewEngine(d.opener(), nil)

		frame, err := e.CaptureBounded()
		if err != nil {
			t.Fatalf("CaptureBounded error: %v", err)
		}
		if frame.Width != 800 || frame.Height != 600 {
			t.Fatalf("frame size = %dx%d, want 800x600", frame.Width, frame.Height)
		}
	}
}

func TestCapture_BoundedFallsBackToFullDisplay(t *testing.T) {
	tests := []struct {
		name  string
		setup func(d *fakeDisplay)
	}{
		{"no children", func(d *fakeDisplay) {}},
		{"no viewable children", func(d *fakeDisplay) {
			d.setWindows(unmapped(2, 300, 200), unmapped(3, 500, 100))
		}},
		{"tree query fails", func(d *fakeDisplay) {
			d.setWindows(viewable(2, 300, 200))
			d.treeErr = errors.New("BadWindow")
		}},
		{"attributes fail for every child", func(d *fakeDisplay) {
			d.setWindows(fakeWindow{id: 2, attrs: WindowAttributes{Viewable: true, Width: 10, Height: 10}, err: errors.New("BadWindow")})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDisplay(1024, 768)
			tt.setup(d)
			e := NewEngine(d.opener(), nil)

			bounded, err := e.Capture(ModeBounded)
			if err != nil {
				t.Fatalf("Capture(bounded) error: %v", err)
			}
			full, err := e.Capture(ModeFull)
			if err != nil {
				t.Fatalf("Capture(full) error: %v", err)
			}
			if bounded.Geometry != full.Geometry {
				t.Fatalf("bounded geometry %+v, want full %+v", bounded.Geometry, full.Geometry)
			}
			if !bytes.Equal(bounded.Data, full.Data) {
				t.Fatal("bounded data differs from full data")
			}
			d.assertBalanced(t)
		})
	}
}

func TestCapture_SkipsChildWhoseAttributesFail(t *testing.T) {
	d := newFakeDisplay(1920, 1080)
	d.setWindows(
		fakeWindow{id: 2, attrs: WindowAttributes{Viewable: true, Width: 1800, Height: 1000}, err: errors.New("BadWindow")},
		viewable(3, 300, 200),
	)
	e := NewEngine(d.opener(), nil)

	frame, err := e.CaptureBounded()
	if err != nil {
		t.Fatalf("CaptureBounded error: %v", err)
	}
	if frame.Width != 300 || frame.Height != 200 {
		t.Fatalf("frame size = %dx%d, want 300x200", frame.Width, frame.Height)
	}
}

func TestCapture_ReadsRootWindowAtOrigin(t *testing.T) {
	d := newFakeDisplay(1920, 1080)
	d.setWindows(viewable(7, 640, 480))
	e := NewEngine(d.opener(), nil)

	if _, err := e.CaptureBounded(); err != nil {
		t.Fatalf("CaptureBounded error: %v", err)
	}
	if len(d.requests) != 1 {
		t.Fatalf("image requests = %d, want 1", len(d.requests))
	}
	want := imageRequest{window: fakeRoot, x: 0, y: 0, width: 640, height: 480}
	if d.requests[0] != want {
		t.Fatalf("image request = %+v, want %+v", d.requests[0], want)
	}
}

func TestCapture_CopiesBeforeRelease(t *testing.T) {
	d := newFakeDisplay(4, 2)
	e := NewEngine(d.opener(), nil)

	frame, err := e.CaptureFull()
	if err != nil {
		t.Fatalf("CaptureFull error: %v", err)
	}
	for i, b := range frame.Data {
		if b != byte(i) {
			t.Fatalf("frame.Data[%d] = %#x, want %#x", i, b, byte(i))
		}
	}
	if d.releases != 1 {
		t.Fatalf("image releases = %d, want 1", d.releases)
	}
}

func TestCapture_BufferIsIndependentOfServerImage(t *testing.T) {
	d := newFakeDisplay(2, 2)
	e := NewEngine(d.opener(), nil)

	frame, err := e.CaptureFull()
	if err != nil {
		t.Fatalf("CaptureFull error: %v", err)
	}
	if len(d.lastSrc) > 0 && &d.lastSrc[0] == &frame.Data[0] {
		t.Fatal("frame shares storage with the server image")
	}
}

func TestCapture_DisplayUnavailable(t *testing.T) {
	d := newFakeDisplay(1920, 1080)
	d.openErr = errors.New("dial unix /tmp/.X11-unix/X0: connect: no such file or directory")
	e := NewEngine(d.opener(), nil)

	for _, mode := range []Mode{ModeBounded, ModeFull} {
		frame, err := e.Capture(mode)
		if !errors.Is(err, ErrDisplayUnavailable) {
			t.Fatalf("Capture(%s) error = %v, want ErrDisplayUnavailable", mode, err)
		}
		if frame != nil {
			t.Fatalf("Capture(%s) returned a frame on failure", mode)
		}
	}
}

func TestCapture_ImageFailureIsDisplayUnavailable(t *testing.T) {
	tests := []struct {
		name  string
		setup func(d *fakeDisplay)
	}{
		{"GetImage error", func(d *fakeDisplay) { d.imageErr = errors.New("BadMatch") }},
		{"short image", func(d *fakeDisplay) { d.shortImage = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDisplay(640, 480)
			tt.setup(d)
			e := NewEngine(d.opener(), nil)

			_, err := e.CaptureFull()
			if !errors.Is(err, ErrDisplayUnavailable) {
				t.Fatalf("CaptureFull error = %v, want ErrDisplayUnavailable", err)
			}
			d.assertBalanced(t)
			if _, ok := e.cache.load(ModeFull); ok {
				t.Fatal("failed capture populated the geometry cache")
			}
		})
	}
}

func TestGeometry_ProbesOnceAndCaches(t *testing.T) {
	d := newFakeDisplay(1920, 1080)
	d.setWindows(viewable(2, 1280, 720))
	e := NewEngine(d.opener(), nil)

	first := e.Geometry(ModeBounded)
	want := Geometry{Width: 1280, Height: 720, Depth: 24, BitsPerPixel: 32}
	if first != want {
		t.Fatalf("Geometry(bounded) = %+v, want %+v", first, want)
	}
	if d.opens != 1 {
		t.Fatalf("sessions opened = %d, want 1", d.opens)
	}
	if d.requests[0].width != probeExtent || d.requests[0].height != probeExtent {
		t.Fatalf("probe requested %dx%d, want %dx%d", d.requests[0].width, d.requests[0].height, probeExtent, probeExtent)
	}

	d.setWindows(viewable(2, 300, 300))
	if got := e.Geometry(ModeBounded); got != want {
		t.Fatalf("second Geometry(bounded) = %+v, want cached %+v", got, want)
	}
	if d.opens != 1 {
		t.Fatalf("sessions opened after cached query = %d, want 1", d.opens)
	}
	d.assertBalanced(t)
}

func TestGeometry_CachedAfterFirstCapture(t *testing.T) {
	d := newFakeDisplay(1920, 1080)
	d.setWindows(viewable(2, 800, 600))
	e := NewEngine(d.opener(), nil)

	if _, err := e.CaptureBounded(); err != nil {
		t.Fatalf("CaptureBounded error: %v", err)
	}

	d.setWindows(viewable(2, 1024, 700))
	w1 := e.Width(ModeBounded)
	d.setWindows(viewable(2, 200, 100))
	w2 := e.Width(ModeBounded)
	if w1 != 800 || w2 != 800 {
		t.Fatalf("Width(bounded) = %d then %d, want 800 both times", w1, w2)
	}
	if h := e.Height(ModeBounded); h != 600 {
		t.Fatalf("Height(bounded) = %d, want 600", h)
	}
	if d.opens != 1 {
		t.Fatalf("sessions opened = %d, want 1 (no re-probe)", d.opens)
	}
}

func TestGeometry_ModesAreCachedSeparately(t *testing.T) {
	d := newFakeDisplay(1920, 1080)
	d.setWindows(viewable(2, 800, 600))
	e := NewEngine(d.opener(), nil)

	if got := e.Width(ModeBounded); got != 800 {
		t.Fatalf("Width(bounded) = %d, want 800", got)
	}
	if got := e.Width(ModeFull); got != 1920 {
		t.Fatalf("Width(full) = %d, want 1920", got)
	}
	if got := e.ColorDepth(ModeFull); got != 24 {
		t.Fatalf("ColorDepth(full) = %d, want 24", got)
	}
	if got := e.BitsPerPixel(ModeBounded); got != 32 {
		t.Fatalf("BitsPerPixel(bounded) = %d, want 32", got)
	}
}

func TestGeometry_LaterCaptureDoesNotOverwriteCache(t *testing.T) {
	d := newFakeDisplay(1920, 1080)
	d.setWindows(viewable(2, 800, 600))
	e := NewEngine(d.opener(), nil)

	e.Geometry(ModeBounded)
	d.setWindows(viewable(2, 1000, 900))

	frame, err := e.CaptureBounded()
	if err != nil {
		t.Fatalf("CaptureBounded error: %v", err)
	}
	if frame.Width != 1000 || frame.Height != 900 {
		t.Fatalf("frame size = %dx%d, want the live 1000x900", frame.Width, frame.Height)
	}
	if got := e.Geometry(ModeBounded); got.Width != 800 || got.Height != 600 {
		t.Fatalf("cached geometry = %+v, want first value 800x600", got)
	}
}

func TestGeometry_DisplayUnavailableReturnsZeroAndRetries(t *testing.T) {
	d := newFakeDisplay(1920, 1080)
	d.openErr = errors.New("no display")
	e := NewEngine(d.opener(), nil)

	if got := e.Geometry(ModeFull); got != (Geometry{}) {
		t.Fatalf("Geometry(full) without display = %+v, want zero", got)
	}
	if got := e.Width(ModeBounded); got != 0 {
		t.Fatalf("Width(bounded) without display = %d, want 0", got)
	}

	d.mu.Lock()
	d.openErr = nil
	d.mu.Unlock()

	if got := e.Width(ModeFull); got != 1920 {
		t.Fatalf("Width(full) after display appeared = %d, want 1920", got)
	}
}

func TestGeometry_ConcurrentFirstQueriesAgree(t *testing.T) {
	d := newFakeDisplay(1280, 1024)
	e := NewEngine(d.opener(), nil)

	const workers = 16
	results := make([]Geometry, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.Geometry(ModeFull)
		}(i)
	}
	wg.Wait()

	for i, g := range results {
		if g != results[0] {
			t.Fatalf("worker %d saw %+v, worker 0 saw %+v", i, g, results[0])
		}
	}
	if results[0].Width != 1280 || results[0].Height != 1024 {
		t.Fatalf("Geometry(full) = %+v, want 1280x1024", results[0])
	}
	d.assertBalanced(t)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"bounded", ModeBounded, false},
		{"APP", ModeBounded, false},
		{" full ", ModeFull, false},
		{"screen", ModeFull, false},
		{"window", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Fatalf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if ModeBounded.String() != "bounded" || ModeFull.String() != "full" {
		t.Fatalf("Mode.String() = %q/%q", ModeBounded, ModeFull)
	}
}
