package main

import (
	"os"
	"os/exec"
	"reflect"
	"testing"
	"time"

	"github.com/1broseidon/xdesk/internal/config"
	"github.com/1broseidon/xdesk/internal/x11"
	"github.com/1broseidon/xdesk/internal/xvfb"
)

func TestLocalDisplay(t *testing.T) {
	tests := []struct {
		name      string
		env       string
		cfgXAuth  string
		wantXAuth string
	}{
		{"configured cookie exported", "", "/tmp/xdesk-cookie", "/tmp/xdesk-cookie"},
		{"configured cookie overrides env", "/tmp/env-cookie", "/tmp/xdesk-cookie", "/tmp/xdesk-cookie"},
		{"env kept when unconfigured", "/tmp/env-cookie", "", "/tmp/env-cookie"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XAUTHORITY", tt.env)
			cfg := config.DefaultConfig()
			cfg.Display = ":42"
			cfg.XAuthority = tt.cfgXAuth

			if got := localDisplay(cfg); got != ":42" {
				t.Fatalf("localDisplay = %q, want :42", got)
			}
			if got := os.Getenv("XAUTHORITY"); got != tt.wantXAuth {
				t.Fatalf("XAUTHORITY = %q, want %q", got, tt.wantXAuth)
			}
		})
	}
}

func TestParseButtonMask(t *testing.T) {
	tests := []struct {
		in      string
		want    int32
		wantErr bool
	}{
		{"left", 1, false},
		{"right", 0x4, false},
		{"scroll-up", 0x8, false},
		{"Scroll-Down", 0x10, false},
		{"0x10", 0x10, false},
		{"2", 2, false},
		{"wheel", 0, true},
	}
	for _, tt := range tests {
		got, err := parseButtonMask(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseButtonMask(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("parseButtonMask(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		in   string
		want []bool
	}{
		{"tap", []bool{true, false}},
		{"", []bool{true, false}},
		{"press", []bool{true}},
		{"UP", []bool{false}},
	}
	for _, tt := range tests {
		got, err := parseState(tt.in)
		if err != nil {
			t.Fatalf("parseState(%q): %v", tt.in, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("parseState(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := parseState("hold"); err == nil {
		t.Fatalf("expected error for unknown state")
	}
}

func TestFormatSource(t *testing.T) {
	tests := []struct {
		src  config.Source
		want string
	}{
		{config.Source{Kind: config.SourceDefault}, "default"},
		{config.Source{Kind: config.SourceFile}, "file"},
		{config.Source{Kind: config.SourceFile, File: "/c.yaml"}, "file:/c.yaml"},
		{config.Source{Kind: config.SourceFile, File: "/c.yaml", Line: 3, Column: 5}, "file:/c.yaml:3:5"},
	}
	for _, tt := range tests {
		if got := formatSource(tt.src); got != tt.want {
			t.Fatalf("formatSource(%+v) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestVirtualServer(t *testing.T) {
	vd := config.DefaultConfig().VirtualDisplay

	s, err := virtualServer(vd, -1, "")
	if err != nil {
		t.Fatalf("virtualServer: %v", err)
	}
	if s.Number != 99 || s.Size != (xvfb.Size{Width: 1200, Height: 720, Depth: 24}) || s.StartupTimeout != time.Second {
		t.Fatalf("unexpected defaults %+v", s)
	}

	s, err = virtualServer(vd, 5, "640x480")
	if err != nil {
		t.Fatalf("virtualServer: %v", err)
	}
	if s.DisplayName() != ":5" || s.Size != (xvfb.Size{Width: 640, Height: 480, Depth: 24}) {
		t.Fatalf("overrides not applied: %+v", s)
	}

	if _, err := virtualServer(vd, -1, "big"); err == nil {
		t.Fatalf("expected size parse error")
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(nil); got != 0 {
		t.Fatalf("exitCode(nil) = %d", got)
	}
	err := exec.Command("sh", "-c", "exit 7").Run()
	if got := exitCode(err); got != 7 {
		t.Fatalf("exitCode(exit 7) = %d", got)
	}
}

func TestFilterWindows(t *testing.T) {
	windows := []x11.WindowInfo{
		{ID: 1, Viewable: true},
		{ID: 2, Viewable: false},
		{ID: 3, Viewable: true},
	}
	got := filterWindows(windows, false)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("filterWindows = %+v", got)
	}
	if got := filterWindows(windows, true); len(got) != 3 {
		t.Fatalf("filterWindows(all) = %+v", got)
	}
}
