// Package keysym resolves key names to X11 keysyms. It understands the X11
// keysym names for function, editing, cursor and modifier keys, the browser
// KeyboardEvent.key names for the same keys, numeric keysyms and single
// Latin-1 characters.
package keysym

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Space is the keysym for the space bar.
const Space uint32 = 0x0020

// x11Names maps X11 keysym names to keysyms. F1..F35 and their L/R aliases
// are filled in by init.
var x11Names = map[string]uint32{
	"BackSpace":   0xff08,
	"Tab":         0xff09,
	"Linefeed":    0xff0a,
	"Clear":       0xff0b,
	"Return":      0xff0d,
	"Pause":       0xff13,
	"Scroll_Lock": 0xff14,
	"Sys_Req":     0xff15,
	"Escape":      0xff1b,
	"Delete":      0xffff,

	"Home":      0xff50,
	"Left":      0xff51,
	"Up":        0xff52,
	"Right":     0xff53,
	"Down":      0xff54,
	"Prior":     0xff55,
	"Page_Up":   0xff55,
	"Next":      0xff56,
	"Page_Down": 0xff56,
	"End":       0xff57,
	"Begin":     0xff58,

	"Select":        0xff60,
	"Print":         0xff61,
	"Execute":       0xff62,
	"Insert":        0xff63,
	"Undo":          0xff65,
	"Redo":          0xff66,
	"Menu":          0xff67,
	"Find":          0xff68,
	"Cancel":        0xff69,
	"Help":          0xff6a,
	"Break":         0xff6b,
	"Mode_switch":   0xff7e,
	"script_switch": 0xff7e,
	"Num_Lock":      0xff7f,

	"Shift_L":    0xffe1,
	"Shift_R":    0xffe2,
	"Control_L":  0xffe3,
	"Control_R":  0xffe4,
	"Caps_Lock":  0xffe5,
	"Shift_Lock": 0xffe6,
	"Meta_L":     0xffe7,
	"Meta_R":     0xffe8,
	"Alt_L":      0xffe9,
	"Alt_R":      0xffea,
	"Super_L":    0xffeb,
	"Super_R":    0xffec,
	"Hyper_L":    0xffed,
	"Hyper_R":    0xffee,

	"space": Space,
}

// domNames maps browser KeyboardEvent.key values onto X11 names.
var domNames = map[string]string{
	"Control":      "Control_L",
	"Alt":          "Alt_L",
	"Shift":        "Shift_L",
	"Meta":         "Super_L",
	"Escape":       "Escape",
	"Enter":        "Return",
	"Backspace":    "BackSpace",
	"Tab":          "Tab",
	"Home":         "Home",
	"End":          "End",
	"PageUp":       "Page_Up",
	"PageDown":     "Page_Down",
	"ArrowRight":   "Right",
	"ArrowLeft":    "Left",
	"ArrowUp":      "Up",
	"ArrowDown":    "Down",
	"Insert":       "Insert",
	"Delete":       "Delete",
	"Alphanumeric": "Caps_Lock",
	"CapsLock":     "Caps_Lock",
	"NumLock":      "Num_Lock",
	"ScrollLock":   "Scroll_Lock",
	"ContextMenu":  "Menu",
	"PrintScreen":  "Print",
}

// shortNames are lowercase conveniences for command lines.
var shortNames = map[string]string{
	"enter": "Return",
	"esc":   "Escape",
	"ctrl":  "Control_L",
	"super": "Super_L",
	"del":   "Delete",
	"pgup":  "Page_Up",
	"pgdn":  "Page_Down",
}

// folded indexes every name by its lowercase form. Exact matches are tried
// first, so folding only matters for names that differ by case alone.
var folded = map[string]uint32{}

func init() {
	for n := 1; n <= 35; n++ {
		x11Names["F"+strconv.Itoa(n)] = 0xffbe + uint32(n-1)
	}
	for n := 1; n <= 10; n++ {
		x11Names["L"+strconv.Itoa(n)] = x11Names["F"+strconv.Itoa(n+10)]
	}
	for n := 1; n <= 15; n++ {
		x11Names["R"+strconv.Itoa(n)] = x11Names["F"+strconv.Itoa(n+20)]
	}

	for name, x := range shortNames {
		folded[name] = x11Names[x]
	}
	for name, x := range domNames {
		folded[strings.ToLower(name)] = x11Names[x]
	}
	for name, ks := range x11Names {
		folded[strings.ToLower(name)] = ks
	}
}

// Lookup resolves a key name. Exact X11 names win over browser names, and
// both win over a case-insensitive match. A single character maps to its
// Latin-1 keysym.
func Lookup(name string) (uint32, bool) {
	if ks, ok := x11Names[name]; ok {
		return ks, true
	}
	if x, ok := domNames[name]; ok {
		return x11Names[x], true
	}
	if r, size := utf8.DecodeRuneInString(name); size == len(name) && r != utf8.RuneError {
		if (r >= 0x20 && r <= 0x7e) || (r >= 0xa0 && r <= 0xff) {
			return uint32(r), true
		}
	}
	if ks, ok := folded[strings.ToLower(name)]; ok {
		return ks, true
	}
	return 0, false
}

// Parse accepts a numeric keysym (decimal or 0x hex) or anything Lookup
// resolves.
func Parse(s string) (uint32, error) {
	if s == "" {
		return 0, fmt.Errorf("empty keysym")
	}
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		return uint32(n), nil
	}
	if ks, ok := Lookup(s); ok {
		return ks, nil
	}
	return 0, fmt.Errorf("unknown keysym %q", s)
}

// Resolve picks the keysym for a request carrying an optional key name and
// a numeric keysym. A non-empty name takes precedence.
func Resolve(name string, keysym uint32) (uint32, error) {
	if name == "" {
		return keysym, nil
	}
	return Parse(name)
}
