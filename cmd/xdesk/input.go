package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/1broseidon/xdesk/internal/config"
	"github.com/1broseidon/xdesk/internal/input"
	"github.com/1broseidon/xdesk/internal/keysym"
)

// injector is satisfied by the IPC client and by localInjector.
type injector interface {
	SendKey(keysym uint32, pressed bool) (bool, error)
	SendMotion(x, y int32) (bool, error)
	SendButton(mask int32, pressed bool) (bool, error)
}

type localInjector struct {
	synth *input.Synthesizer
}

func (l localInjector) SendKey(ks uint32, pressed bool) (bool, error) {
	return l.synth.SendKey(ks, pressed), nil
}

func (l localInjector) SendMotion(x, y int32) (bool, error) {
	return l.synth.SendMotion(x, y), nil
}

func (l localInjector) SendButton(mask int32, pressed bool) (bool, error) {
	return l.synth.SendButton(mask, pressed), nil
}

func newInjector(local bool) (injector, error) {
	if !local {
		return newClient()
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if !cfg.Input.GetEnabled() {
		return nil, fmt.Errorf("input is disabled (input.enabled: false)")
	}
	display := localDisplay(cfg)
	return localInjector{synth: input.NewSynthesizer(input.X11Opener(display), nil)}, nil
}

var namedButtons = map[string]int32{
	"left":        0x1,
	"middle":      0x2,
	"right":       input.MaskRight,
	"scroll-up":   input.MaskScrollUp,
	"scroll-down": input.MaskScrollDown,
}

func parseButtonMask(s string) (int32, error) {
	if m, ok := namedButtons[strings.ToLower(s)]; ok {
		return m, nil
	}
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid button mask %q", s)
	}
	return int32(n), nil
}

// parseState maps --state to the press flags to send, in order.
func parseState(s string) ([]bool, error) {
	switch strings.ToLower(s) {
	case "press", "down":
		return []bool{true}, nil
	case "release", "up":
		return []bool{false}, nil
	case "tap", "":
		return []bool{true, false}, nil
	default:
		return nil, fmt.Errorf("invalid state %q (want press, release or tap)", s)
	}
}

func printInputUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdesk input key [--local] [--state press|release|tap] <keysym>")
	fmt.Fprintln(w, "  xdesk input motion [--local] <x> <y>")
	fmt.Fprintln(w, "  xdesk input button [--local] [--state press|release|tap] <mask>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Keysyms may be numeric (0x61), an X11 name (Return, Page_Up, F13), a browser")
	fmt.Fprintln(w, "key name (Enter, ArrowLeft, PageDown) or one character.")
	fmt.Fprintln(w, "Button masks may be numeric or left, middle, right, scroll-up, scroll-down.")
}

func runInput(args []string) int {
	if len(args) == 0 {
		printInputUsage(os.Stderr)
		return 2
	}
	if isHelpArg(args) {
		printInputUsage(os.Stdout)
		return 0
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() { printInputUsage(os.Stderr) }
	local := fs.Bool("local", false, "Inject directly instead of via the daemon")

	var state *string
	if args[0] == "key" || args[0] == "button" {
		state = fs.String("state", "tap", "press, release or tap (press then release)")
	}

	switch args[0] {
	case "key", "motion", "button":
	default:
		fmt.Fprintf(os.Stderr, "Unknown input command: %s\n\n", args[0])
		printInputUsage(os.Stderr)
		return 2
	}
	if code := parseFlags(fs, args[1:]); code >= 0 {
		return code
	}

	var send func(inj injector) (bool, error)
	switch args[0] {
	case "key":
		if fs.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "input key requires <keysym>")
			return 2
		}
		ks, err := keysym.Parse(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		states, err := parseState(*state)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		send = func(inj injector) (bool, error) {
			delivered := true
			for _, pressed := range states {
				ok, err := inj.SendKey(ks, pressed)
				if err != nil {
					return false, err
				}
				delivered = delivered && ok
			}
			return delivered, nil
		}

	case "motion":
		if fs.NArg() != 2 {
			fmt.Fprintln(os.Stderr, "input motion requires <x> <y>")
			return 2
		}
		x, errX := strconv.ParseInt(fs.Arg(0), 10, 32)
		y, errY := strconv.ParseInt(fs.Arg(1), 10, 32)
		if errX != nil || errY != nil {
			fmt.Fprintln(os.Stderr, "x and y must be integers")
			return 2
		}
		send = func(inj injector) (bool, error) {
			return inj.SendMotion(int32(x), int32(y))
		}

	case "button":
		if fs.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "input button requires <mask>")
			return 2
		}
		mask, err := parseButtonMask(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		states, err := parseState(*state)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		// A scroll mask is already a full click per event.
		if mask == input.MaskScrollUp || mask == input.MaskScrollDown {
			states = states[:1]
		}
		send = func(inj injector) (bool, error) {
			delivered := true
			for _, pressed := range states {
				ok, err := inj.SendButton(mask, pressed)
				if err != nil {
					return false, err
				}
				delivered = delivered && ok
			}
			return delivered, nil
		}
	}

	inj, err := newInjector(*local)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	delivered, err := send(inj)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !delivered {
		fmt.Fprintln(os.Stderr, "not delivered (no display, unmapped keysym or empty mask)")
		return 1
	}
	return 0
}
