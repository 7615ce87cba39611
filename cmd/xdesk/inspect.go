package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/1broseidon/xdesk/internal/config"
	"github.com/1broseidon/xdesk/internal/x11"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func renderTable(headers []string, rows [][]string, dim func(row int) bool) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case dim != nil && dim(row):
				return dimStyle
			default:
				return cellStyle
			}
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

func localInspector() (x11.Inspector, error) {
	cfg, err := config.Load()
	if err != nil {
		return x11.Inspector{}, err
	}
	return x11.Inspector{Display: localDisplay(cfg)}, nil
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runMonitors(args []string) int {
	fs := flag.NewFlagSet("monitors", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: xdesk monitors [--local] [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	local := fs.Bool("local", false, "Query the X server directly instead of via the daemon")
	jsonOut := fs.Bool("json", false, "Output JSON")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}

	var monitors []x11.Monitor
	if *local {
		insp, err := localInspector()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if monitors, err = insp.Monitors(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	} else {
		client, err := newClient()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		data, err := client.GetMonitors()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		monitors = data.Monitors
	}

	if *jsonOut {
		return printJSON(monitors)
	}
	rows := make([][]string, 0, len(monitors))
	for _, m := range monitors {
		rows = append(rows, []string{
			strconv.Itoa(m.ID),
			m.Name,
			fmt.Sprintf("%d,%d", m.X, m.Y),
			fmt.Sprintf("%dx%d", m.Width, m.Height),
		})
	}
	fmt.Println(renderTable([]string{"ID", "NAME", "ORIGIN", "SIZE"}, rows, nil))
	return 0
}

func runWindows(args []string) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: xdesk windows [--local] [--json] [--all]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List the root's top-level windows. Viewable windows bound the")
		fmt.Fprintln(os.Stderr, "bounded capture mode.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	local := fs.Bool("local", false, "Query the X server directly instead of via the daemon")
	jsonOut := fs.Bool("json", false, "Output JSON")
	all := fs.Bool("all", false, "Include unmapped windows")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}

	var windows []x11.WindowInfo
	if *local {
		insp, err := localInspector()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if windows, err = insp.Windows(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	} else {
		client, err := newClient()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		data, err := client.ListWindows()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		windows = data.Windows
	}

	windows = filterWindows(windows, *all)
	if *jsonOut {
		return printJSON(windows)
	}

	rows := make([][]string, 0, len(windows))
	for _, w := range windows {
		rows = append(rows, []string{
			fmt.Sprintf("0x%08x", w.ID),
			strconv.FormatBool(w.Viewable),
			fmt.Sprintf("%dx%d", w.Width, w.Height),
			w.Class,
			w.Title,
		})
	}
	fmt.Println(renderTable([]string{"ID", "VIEWABLE", "SIZE", "CLASS", "TITLE"}, rows, func(row int) bool {
		return !windows[row].Viewable
	}))
	return 0
}

func filterWindows(windows []x11.WindowInfo, all bool) []x11.WindowInfo {
	if all {
		return windows
	}
	out := make([]x11.WindowInfo, 0, len(windows))
	for _, w := range windows {
		if w.Viewable {
			out = append(out, w)
		}
	}
	return out
}
