package capture

import "sync/atomic"

// geometryCache holds one write-once slot per mode. Racing writers are
// tolerated: the first CompareAndSwap wins and later values are dropped.
type geometryCache struct {
	slots [2]atomic.Pointer[Geometry]
}

func (c *geometryCache) load(mode Mode) (Geometry, bool) {
	slot := c.slot(mode)
	if slot == nil {
		return Geometry{}, false
	}
	if g := slot.Load(); g != nil {
		return *g, true
	}
	return Geometry{}, false
}

// storeIfUnset populates the slot and returns whatever the slot holds
// afterwards.
func (c *geometryCache) storeIfUnset(mode Mode, g Geometry) Geometry {
	slot := c.slot(mode)
	if slot == nil {
		return g
	}
	value := g
	if slot.CompareAndSwap(nil, &value) {
		return value
	}
	return *slot.Load()
}

func (c *geometryCache) slot(mode Mode) *atomic.Pointer[Geometry] {
	switch mode {
	case ModeBounded, ModeFull:
		return &c.slots[mode]
	default:
		return nil
	}
}
