package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/1broseidon/xdesk/internal/capture"
	"github.com/1broseidon/xdesk/internal/config"
)

// localEngine builds a capture engine that talks to the X server directly
// instead of going through the daemon.
func localEngine(cfg *config.Config) *capture.Engine {
	return capture.NewEngine(capture.X11Opener(localDisplay(cfg)), nil)
}

func runCapture(args []string) int {
	fs := flag.NewFlagSet("capture", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: xdesk capture [--mode bounded|full] [--local] [-o FILE]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Write one frame of raw ZPixmap pixels. The geometry is printed on stderr.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	mode := fs.String("mode", "", "Capture mode: bounded or full (default: capture.default_mode)")
	local := fs.Bool("local", false, "Capture directly instead of via the daemon")
	outPath := fs.String("o", "", "Output file (default: stdout)")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "capture takes no arguments")
		fs.Usage()
		return 2
	}

	if *outPath == "" && term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "refusing to write raw pixels to a terminal; use -o FILE or redirect stdout")
		return 2
	}

	frame, err := captureFrame(*mode, *local)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var w io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(frame.Data); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "%dx%d depth=%d bpp=%d bytes=%d\n",
		frame.Width, frame.Height, frame.Depth, frame.BitsPerPixel, frame.Size())
	return 0
}

func captureFrame(mode string, local bool) (*capture.Frame, error) {
	if !local {
		client, err := newClient()
		if err != nil {
			return nil, err
		}
		return client.Frame(mode)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = cfg.Capture.DefaultMode
	}
	m, err := capture.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return localEngine(cfg).Capture(m)
}

func runGeometry(args []string) int {
	fs := flag.NewFlagSet("geometry", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: xdesk geometry [--mode bounded|full] [--local] [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show width, height, depth and bits per pixel for a capture mode.")
		fmt.Fprintln(os.Stderr, "A display that cannot be reached reports zeros.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	mode := fs.String("mode", "", "Capture mode: bounded or full (default: capture.default_mode)")
	local := fs.Bool("local", false, "Query the X server directly instead of via the daemon")
	jsonOut := fs.Bool("json", false, "Output JSON")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "geometry takes no arguments")
		fs.Usage()
		return 2
	}

	modeName, g, err := queryGeometry(*mode, *local)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Mode string `json:"mode"`
			capture.Geometry
		}{modeName, g}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
	fmt.Printf("mode:           %s\n", modeName)
	fmt.Printf("width:          %d\n", g.Width)
	fmt.Printf("height:         %d\n", g.Height)
	fmt.Printf("depth:          %d\n", g.Depth)
	fmt.Printf("bits_per_pixel: %d\n", g.BitsPerPixel)
	return 0
}

func queryGeometry(mode string, local bool) (string, capture.Geometry, error) {
	if !local {
		client, err := newClient()
		if err != nil {
			return "", capture.Geometry{}, err
		}
		data, err := client.Geometry(mode)
		if err != nil {
			return "", capture.Geometry{}, err
		}
		return data.Mode, data.Geometry, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return "", capture.Geometry{}, err
	}
	if mode == "" {
		mode = cfg.Capture.DefaultMode
	}
	m, err := capture.ParseMode(mode)
	if err != nil {
		return "", capture.Geometry{}, err
	}
	return m.String(), localEngine(cfg).Geometry(m), nil
}
