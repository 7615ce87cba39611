// Package capture reads the visible screen contents of an X display into
// caller-owned pixel buffers.
//
// Every call opens its own display session and closes it before returning.
// The only state kept between calls is the per-mode geometry cache.
package capture

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDisplayUnavailable reports that no session could be opened or that the
// server would not hand back an image for the capture region.
var ErrDisplayUnavailable = errors.New("display unavailable")

// Mode selects how the capture rectangle is sized.
type Mode int

const (
	// ModeBounded sizes the rectangle to the visible application footprint.
	ModeBounded Mode = iota
	// ModeFull always uses the whole display.
	ModeFull
)

func (m Mode) String() string {
	switch m {
	case ModeBounded:
		return "bounded"
	case ModeFull:
		return "full"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "bounded" (alias "app") and "full" (alias "screen").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bounded", "app":
		return ModeBounded, nil
	case "full", "screen":
		return ModeFull, nil
	default:
		return 0, fmt.Errorf("unknown capture mode %q (want bounded or full)", s)
	}
}

// Geometry describes a capture rectangle and the native pixel layout.
type Geometry struct {
	Width        int `json:"width"`
	Height       int `json:"height"`
	Depth        int `json:"depth"`
	BitsPerPixel int `json:"bits_per_pixel"`
}

// BytesPerPixel is the stride of one pixel in a Frame buffer.
func (g Geometry) BytesPerPixel() int {
	return g.BitsPerPixel / 8
}

// BufferSize is the exact length of a Frame buffer with this geometry.
func (g Geometry) BufferSize() int {
	return g.BytesPerPixel() * g.Width * g.Height
}

// Frame is one captured image. Data is row-major, BytesPerPixel bytes per
// pixel, no padding, in the server's native pixel format. The caller owns it.
type Frame struct {
	Geometry
	Data []byte
}

// Size returns the byte length of the pixel buffer.
func (f *Frame) Size() int {
	return len(f.Data)
}

// Region is the width and height of the rectangle read from the root window
// starting at the display origin.
type Region struct {
	Width  int
	Height int
}
