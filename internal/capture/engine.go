package capture

import (
	"fmt"
	"io"
	"log/slog"
)

// probeExtent is the edge of the image read when only the pixel format is
// wanted. Servers disagree on zero-sized GetImage requests, one pixel is
// always inside a non-empty region.
const probeExtent = 1

// Engine captures the screen of whatever display its Opener connects to.
// It is safe for concurrent use.
type Engine struct {
	open   Opener
	cache  geometryCache
	logger *slog.Logger
}

// NewEngine creates an engine. A nil logger discards log output.
func NewEngine(open Opener, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{open: open, logger: logger}
}

// Capture reads the region for mode and returns it as a new buffer. The
// mode's geometry cache is populated if it was still empty. Fails with
// ErrDisplayUnavailable when no session opens or the image read fails.
func (e *Engine) Capture(mode Mode) (*Frame, error) {
	s, err := e.open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDisplayUnavailable, err)
	}
	defer s.Close()

	region, fellBack := resolveRegion(s, mode)
	if fellBack {
		e.logger.Debug("no viewable top-level windows, capturing full display", "mode", mode)
	}

	frame, err := extract(s, region)
	if err != nil {
		return nil, err
	}

	e.cache.storeIfUnset(mode, frame.Geometry)
	e.logger.Debug("captured frame",
		"mode", mode,
		"width", frame.Width,
		"height", frame.Height,
		"depth", frame.Depth,
		"bpp", frame.BitsPerPixel,
		"bytes", frame.Size(),
	)
	return frame, nil
}

// CaptureBounded is Capture(ModeBounded).
func (e *Engine) CaptureBounded() (*Frame, error) {
	return e.Capture(ModeBounded)
}

// CaptureFull is Capture(ModeFull).
func (e *Engine) CaptureFull() (*Frame, error) {
	return e.Capture(ModeFull)
}

// Geometry returns the cached geometry for mode, probing the display on the
// first call. If the display cannot be reached the zero Geometry is returned
// and the cache stays empty so a later call probes again.
func (e *Engine) Geometry(mode Mode) Geometry {
	if g, ok := e.cache.load(mode); ok {
		return g
	}

	g, err := e.probe(mode)
	if err != nil {
		e.logger.Debug("geometry probe failed", "mode", mode, "error", err)
		return Geometry{}
	}
	return e.cache.storeIfUnset(mode, g)
}

// Width returns the cached capture width for mode.
func (e *Engine) Width(mode Mode) int { return e.Geometry(mode).Width }

// Height returns the cached capture height for mode.
func (e *Engine) Height(mode Mode) int { return e.Geometry(mode).Height }

// ColorDepth returns the cached color depth for mode.
func (e *Engine) ColorDepth(mode Mode) int { return e.Geometry(mode).Depth }

// BitsPerPixel returns the cached bits per pixel for mode.
func (e *Engine) BitsPerPixel(mode Mode) int { return e.Geometry(mode).BitsPerPixel }

// probe resolves the region for mode and reads the pixel format without
// keeping any pixels.
func (e *Engine) probe(mode Mode) (Geometry, error) {
	s, err := e.open()
	if err != nil {
		return Geometry{}, fmt.Errorf("%w: %w", ErrDisplayUnavailable, err)
	}
	defer s.Close()

	region, _ := resolveRegion(s, mode)
	img, err := s.GetImage(s.RootWindow(), 0, 0, probeExtent, probeExtent)
	if err != nil {
		return Geometry{}, fmt.Errorf("%w: %w", ErrDisplayUnavailable, err)
	}
	defer img.Release()

	depth, bpp := img.Format()
	return Geometry{
		Width:        region.Width,
		Height:       region.Height,
		Depth:        depth,
		BitsPerPixel: bpp,
	}, nil
}

// extract copies the root window's pixels for region into a new buffer. The
// server image is released only after the copy.
func extract(s Session, region Region) (*Frame, error) {
	if region.Width <= 0 || region.Height <= 0 {
		return nil, fmt.Errorf("%w: empty capture region %dx%d", ErrDisplayUnavailable, region.Width, region.Height)
	}

	img, err := s.GetImage(s.RootWindow(), 0, 0, region.Width, region.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDisplayUnavailable, err)
	}
	defer img.Release()

	depth, bpp := img.Format()
	g := Geometry{
		Width:        region.Width,
		Height:       region.Height,
		Depth:        depth,
		BitsPerPixel: bpp,
	}

	n := g.BufferSize()
	src := img.Pixels()
	if len(src) < n {
		return nil, fmt.Errorf("%w: image holds %d bytes, need %d", ErrDisplayUnavailable, len(src), n)
	}

	data := make([]byte, n)
	copy(data, src[:n])
	return &Frame{Geometry: g, Data: data}, nil
}
