package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if !cfg.Capture.GetProbeOnStart() || !cfg.Input.GetEnabled() || !cfg.MCP.GetAllowInput() {
		t.Fatalf("expected boolean defaults to be true")
	}
	if cfg.VirtualDisplay.Width != 1200 || cfg.VirtualDisplay.Height != 720 || cfg.VirtualDisplay.Depth != 24 {
		t.Fatalf("unexpected virtual display default %+v", cfg.VirtualDisplay)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Capture.DefaultMode != "bounded" {
		t.Fatalf("expected default_mode bounded, got %q", res.Config.Capture.DefaultMode)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files loaded, got %v", res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.LogLevel != "info" {
		t.Fatalf("expected log_level info, got %q", res.Config.LogLevel)
	}
}

func TestLoadFromPath_OverridesAndSources(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", strings.Join([]string{
		`display: ":1"`,
		`xauthority: "/tmp/test-xauth"`,
		`capture:`,
		`  default_mode: full`,
		`  probe_on_start: false`,
		`mcp:`,
		`  allow_input: false`,
		`virtual_display:`,
		`  width: 1920`,
		``,
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Display != ":1" || cfg.XAuthority != "/tmp/test-xauth" {
		t.Fatalf("unexpected display settings %q %q", cfg.Display, cfg.XAuthority)
	}
	if cfg.Capture.DefaultMode != "full" || cfg.Capture.GetProbeOnStart() {
		t.Fatalf("unexpected capture config %+v", cfg.Capture)
	}
	if cfg.MCP.GetAllowInput() {
		t.Fatalf("expected mcp.allow_input false")
	}
	if !cfg.Input.GetEnabled() {
		t.Fatalf("expected input.enabled to keep its default")
	}
	if cfg.VirtualDisplay.Width != 1920 || cfg.VirtualDisplay.Height != DefaultVirtualHeight {
		t.Fatalf("unexpected virtual display %+v", cfg.VirtualDisplay)
	}

	val, src, err := Explain(res, "display")
	if err != nil {
		t.Fatalf("explain display: %v", err)
	}
	if val != ":1" || src.Kind != SourceFile || src.Line != 1 {
		t.Fatalf("explain display = %v from %+v", val, src)
	}
	val, src, err = Explain(res, "log_level")
	if err != nil {
		t.Fatalf("explain log_level: %v", err)
	}
	if val != "info" || src.Kind != SourceDefault {
		t.Fatalf("explain log_level = %v from %+v", val, src)
	}
	if _, _, err := Explain(res, "hotkey"); err == nil {
		t.Fatalf("expected unknown path error")
	}
}

func TestLoadFromPath_UnknownKeyRejected(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "capture:\n  mode: full\n")

	if _, err := LoadFromPath(path); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoadFromPath_ValidationErrorCarriesSource(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "log_level: info\nlog_format: xml\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "log_format" || verr.Source.Line != 2 {
		t.Fatalf("unexpected validation error %+v", verr)
	}
	if !strings.Contains(err.Error(), ":2:") {
		t.Fatalf("expected line number in %q", err.Error())
	}
}

func TestLoadFromPath_IncludesMergeInOrder(t *testing.T) {
	dir := t.TempDir()
	confd := filepath.Join(dir, "conf.d")
	if err := os.Mkdir(confd, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeConfig(t, confd, "10-display.yaml", "display: \":5\"\nlog_level: debug\n")
	writeConfig(t, confd, "20-vd.yaml", "virtual_display:\n  number: 42\n")
	writeConfig(t, confd, "notes.txt", "not yaml")
	path := writeConfig(t, dir, "config.yaml", "include: conf.d\nlog_level: warning\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Display != ":5" {
		t.Fatalf("expected display from include, got %q", res.Config.Display)
	}
	if res.Config.LogLevel != "warning" {
		t.Fatalf("expected including file to win, got %q", res.Config.LogLevel)
	}
	if res.Config.VirtualDisplay.Number != 42 {
		t.Fatalf("expected virtual_display.number 42, got %d", res.Config.VirtualDisplay.Number)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 files loaded, got %v", res.Files)
	}
}

func TestLoadFromPath_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.yaml", "include: b.yaml\n")
	writeConfig(t, dir, "b.yaml", "include: a.yaml\n")

	_, err := LoadFromPath(filepath.Join(dir, "a.yaml"))
	if err == nil || !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		path   string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"bad log format", func(c *Config) { c.LogFormat = "logfmt" }, "log_format"},
		{"bad capture mode", func(c *Config) { c.Capture.DefaultMode = "window" }, "capture.default_mode"},
		{"negative display number", func(c *Config) { c.VirtualDisplay.Number = -1 }, "virtual_display.number"},
		{"zero width", func(c *Config) { c.VirtualDisplay.Width = 0 }, "virtual_display.width"},
		{"zero height", func(c *Config) { c.VirtualDisplay.Height = 0 }, "virtual_display.height"},
		{"odd depth", func(c *Config) { c.VirtualDisplay.Depth = 12 }, "virtual_display.depth"},
		{"zero timeout", func(c *Config) { c.VirtualDisplay.StartupTimeoutMs = 0 }, "virtual_display.startup_timeout_ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("expected path %q, got %q", tt.path, verr.Path)
			}
		})
	}
}

func TestSaveTo_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Display = ":3"
	off := false
	cfg.Input.Enabled = &off

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if res.Config.Display != ":3" || res.Config.Input.GetEnabled() {
		t.Fatalf("unexpected reloaded config %+v", res.Config)
	}
}

func TestSaveTo_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.LogLevel = "loud"

	if err := cfg.SaveTo(path); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file written, stat err %v", err)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath: %v", err)
	}
	if want := filepath.Join(home, ".config", "xdesk", "config.yaml"); path != want {
		t.Fatalf("expected %q, got %q", want, path)
	}
}
