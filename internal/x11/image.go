package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

const allPlanes = 0xffffffff

// WindowAttributes is the subset of a window's state the capture sizing needs.
type WindowAttributes struct {
	Viewable bool
	Width    int
	Height   int
}

// Image is a ZPixmap image read back from the server. The pixel storage
// belongs to the Image until Release is called.
type Image struct {
	depth        int
	bitsPerPixel int
	data         []byte
}

// Format returns the image depth and the bits each pixel occupies in Pixels.
func (img *Image) Format() (depth, bitsPerPixel int) {
	return img.depth, img.bitsPerPixel
}

// Pixels returns the raw pixel storage. Invalid after Release.
func (img *Image) Pixels() []byte {
	return img.data
}

// Release drops the reference to the reply storage.
func (img *Image) Release() {
	img.data = nil
}

// Children lists the immediate children of a window in stacking order.
func (c *Connection) Children(parent xproto.Window) ([]xproto.Window, error) {
	tree, err := xproto.QueryTree(c.XUtil.Conn(), parent).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query window tree: %w", err)
	}
	return tree.Children, nil
}

// Attributes returns the map state and size of a window. Width and height
// are only queried for viewable windows.
func (c *Connection) Attributes(windowID xproto.Window) (WindowAttributes, error) {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	if err != nil {
		return WindowAttributes{}, fmt.Errorf("failed to get window attributes: %w", err)
	}
	if attrs.MapState != xproto.MapStateViewable {
		return WindowAttributes{}, nil
	}

	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return WindowAttributes{}, fmt.Errorf("failed to get window geometry: %w", err)
	}

	return WindowAttributes{
		Viewable: true,
		Width:    int(geom.Width),
		Height:   int(geom.Height),
	}, nil
}

// GetImage reads a full-plane ZPixmap image of the given rectangle.
func (c *Connection) GetImage(windowID xproto.Window, x, y, width, height int) (*Image, error) {
	reply, err := xproto.GetImage(
		c.XUtil.Conn(),
		xproto.ImageFormatZPixmap,
		xproto.Drawable(windowID),
		int16(x), int16(y),
		uint16(width), uint16(height),
		allPlanes,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get %dx%d image: %w", width, height, err)
	}

	bpp, ok := c.bitsPerPixel(reply.Depth)
	if !ok {
		return nil, fmt.Errorf("no pixmap format for depth %d", reply.Depth)
	}

	return &Image{
		depth:        int(reply.Depth),
		bitsPerPixel: bpp,
		data:         reply.Data,
	}, nil
}

// bitsPerPixel looks up the server's ZPixmap layout for a depth.
func (c *Connection) bitsPerPixel(depth byte) (int, bool) {
	for _, format := range xproto.Setup(c.XUtil.Conn()).PixmapFormats {
		if format.Depth == depth {
			return int(format.BitsPerPixel), true
		}
	}
	return 0, false
}
