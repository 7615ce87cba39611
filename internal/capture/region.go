package capture

// resolveRegion computes the capture rectangle for mode on an open session.
func resolveRegion(s Session, mode Mode) (Region, bool) {
	if mode == ModeFull {
		return fullRegion(s), false
	}
	return boundedRegion(s)
}

func fullRegion(s Session) Region {
	w, h := s.DisplaySize()
	return Region{Width: w, Height: h}
}

// boundedRegion sizes the rectangle from the root's viewable children. Width
// and height are maximised independently, so the result can be wider than
// the tallest window and taller than the widest one. The second return value
// reports whether it fell back to the display extent.
func boundedRegion(s Session) (Region, bool) {
	children, err := s.Children(s.RootWindow())
	if err != nil || len(children) == 0 {
		return fullRegion(s), true
	}

	var r Region
	viewable := false
	for _, child := range children {
		attrs, err := s.WindowAttributes(child)
		if err != nil || !attrs.Viewable {
			continue
		}
		if attrs.Width > r.Width {
			r.Width = attrs.Width
		}
		if attrs.Height > r.Height {
			r.Height = attrs.Height
		}
		viewable = true
	}

	if !viewable {
		return fullRegion(s), true
	}
	return r, false
}
