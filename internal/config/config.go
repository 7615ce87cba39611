package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default virtual display, matching a common laptop panel at 24-bit depth.
const (
	DefaultVirtualDisplayNumber = 99
	DefaultVirtualWidth         = 1200
	DefaultVirtualHeight        = 720
	DefaultVirtualDepth         = 24
	DefaultStartupTimeoutMs     = 1000
)

// Config is the effective configuration after defaults and every loaded file
// have been merged.
type Config struct {
	// Display overrides the X display (e.g. ":0"). Empty means autodetect.
	Display string `yaml:"display,omitempty"`
	// XAuthority overrides the cookie file used to authenticate.
	XAuthority string `yaml:"xauthority,omitempty"`
	// SocketPath overrides the daemon socket location.
	SocketPath string `yaml:"socket_path,omitempty"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file,omitempty"`

	Capture        CaptureConfig        `yaml:"capture"`
	Input          InputConfig          `yaml:"input"`
	MCP            MCPConfig            `yaml:"mcp"`
	VirtualDisplay VirtualDisplayConfig `yaml:"virtual_display"`
}

type CaptureConfig struct {
	// DefaultMode is "bounded" or "full".
	DefaultMode string `yaml:"default_mode"`
	// ProbeOnStart fills the geometry cache when the daemon starts.
	ProbeOnStart *bool `yaml:"probe_on_start,omitempty"`
}

// GetProbeOnStart returns whether to probe geometry at startup (default: true).
func (c *CaptureConfig) GetProbeOnStart() bool {
	if c.ProbeOnStart == nil {
		return true
	}
	return *c.ProbeOnStart
}

type InputConfig struct {
	// Enabled gates every input command served by the daemon.
	Enabled *bool `yaml:"enabled,omitempty"`
}

// GetEnabled returns whether input injection is allowed (default: true).
func (c *InputConfig) GetEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

type MCPConfig struct {
	// AllowInput registers the send_* tools.
	AllowInput *bool `yaml:"allow_input,omitempty"`
}

// GetAllowInput returns whether MCP clients may inject input (default: true).
func (c *MCPConfig) GetAllowInput() bool {
	if c.AllowInput == nil {
		return true
	}
	return *c.AllowInput
}

// VirtualDisplayConfig describes the Xvfb server started by "xdesk virtual".
type VirtualDisplayConfig struct {
	Number           int `yaml:"number"`
	Width            int `yaml:"width"`
	Height           int `yaml:"height"`
	Depth            int `yaml:"depth"`
	StartupTimeoutMs int `yaml:"startup_timeout_ms"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "auto",
		Capture: CaptureConfig{
			DefaultMode: "bounded",
		},
		VirtualDisplay: VirtualDisplayConfig{
			Number:           DefaultVirtualDisplayNumber,
			Width:            DefaultVirtualWidth,
			Height:           DefaultVirtualHeight,
			Depth:            DefaultVirtualDepth,
			StartupTimeoutMs: DefaultStartupTimeoutMs,
		},
	}
}

// ValidationError points at the offending key and, when known, the file
// position that set it.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	switch c.LogFormat {
	case "auto", "text", "json":
	default:
		return &ValidationError{Path: "log_format", Err: fmt.Errorf("log_format must be one of: auto, text, json")}
	}
	switch strings.ToLower(c.Capture.DefaultMode) {
	case "bounded", "full":
	default:
		return &ValidationError{Path: "capture.default_mode", Err: fmt.Errorf("default_mode must be one of: bounded, full")}
	}

	vd := c.VirtualDisplay
	if vd.Number < 0 {
		return &ValidationError{Path: "virtual_display.number", Err: fmt.Errorf("number must be >= 0")}
	}
	if vd.Width <= 0 {
		return &ValidationError{Path: "virtual_display.width", Err: fmt.Errorf("width must be > 0")}
	}
	if vd.Height <= 0 {
		return &ValidationError{Path: "virtual_display.height", Err: fmt.Errorf("height must be > 0")}
	}
	switch vd.Depth {
	case 8, 15, 16, 24, 30, 32:
	default:
		return &ValidationError{Path: "virtual_display.depth", Err: fmt.Errorf("depth must be one of: 8, 15, 16, 24, 30, 32")}
	}
	if vd.StartupTimeoutMs <= 0 {
		return &ValidationError{Path: "virtual_display.startup_timeout_ms", Err: fmt.Errorf("startup_timeout_ms must be > 0")}
	}
	return nil
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo validates and writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
