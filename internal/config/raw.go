package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

// RawConfig mirrors the file layout. Nil fields were not set by any file.
type RawConfig struct {
	Include IncludeList `yaml:"include"`

	Display    *string `yaml:"display"`
	XAuthority *string `yaml:"xauthority"`
	SocketPath *string `yaml:"socket_path"`
	LogLevel   *string `yaml:"log_level"`
	LogFormat  *string `yaml:"log_format"`
	LogFile    *string `yaml:"log_file"`

	Capture        *RawCaptureConfig        `yaml:"capture"`
	Input          *RawInputConfig          `yaml:"input"`
	MCP            *RawMCPConfig            `yaml:"mcp"`
	VirtualDisplay *RawVirtualDisplayConfig `yaml:"virtual_display"`
}

type RawCaptureConfig struct {
	DefaultMode  *string `yaml:"default_mode"`
	ProbeOnStart *bool   `yaml:"probe_on_start"`
}

type RawInputConfig struct {
	Enabled *bool `yaml:"enabled"`
}

type RawMCPConfig struct {
	AllowInput *bool `yaml:"allow_input"`
}

type RawVirtualDisplayConfig struct {
	Number           *int `yaml:"number"`
	Width            *int `yaml:"width"`
	Height           *int `yaml:"height"`
	Depth            *int `yaml:"depth"`
	StartupTimeoutMs *int `yaml:"startup_timeout_ms"`
}

// merge returns c with every field set in overlay replacing c's value.
func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c
	out.Include = nil

	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.XAuthority != nil {
		out.XAuthority = overlay.XAuthority
	}
	if overlay.SocketPath != nil {
		out.SocketPath = overlay.SocketPath
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.LogFormat != nil {
		out.LogFormat = overlay.LogFormat
	}
	if overlay.LogFile != nil {
		out.LogFile = overlay.LogFile
	}

	if overlay.Capture != nil {
		merged := RawCaptureConfig{}
		if out.Capture != nil {
			merged = *out.Capture
		}
		if overlay.Capture.DefaultMode != nil {
			merged.DefaultMode = overlay.Capture.DefaultMode
		}
		if overlay.Capture.ProbeOnStart != nil {
			merged.ProbeOnStart = overlay.Capture.ProbeOnStart
		}
		out.Capture = &merged
	}
	if overlay.Input != nil {
		merged := RawInputConfig{}
		if out.Input != nil {
			merged = *out.Input
		}
		if overlay.Input.Enabled != nil {
			merged.Enabled = overlay.Input.Enabled
		}
		out.Input = &merged
	}
	if overlay.MCP != nil {
		merged := RawMCPConfig{}
		if out.MCP != nil {
			merged = *out.MCP
		}
		if overlay.MCP.AllowInput != nil {
			merged.AllowInput = overlay.MCP.AllowInput
		}
		out.MCP = &merged
	}
	if overlay.VirtualDisplay != nil {
		merged := RawVirtualDisplayConfig{}
		if out.VirtualDisplay != nil {
			merged = *out.VirtualDisplay
		}
		mergeInt(&merged.Number, overlay.VirtualDisplay.Number)
		mergeInt(&merged.Width, overlay.VirtualDisplay.Width)
		mergeInt(&merged.Height, overlay.VirtualDisplay.Height)
		mergeInt(&merged.Depth, overlay.VirtualDisplay.Depth)
		mergeInt(&merged.StartupTimeoutMs, overlay.VirtualDisplay.StartupTimeoutMs)
		out.VirtualDisplay = &merged
	}
	return out
}

func mergeInt(dst **int, overlay *int) {
	if overlay != nil {
		*dst = overlay
	}
}

// BuildEffectiveConfig applies raw on top of DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	setString(&cfg.Display, raw.Display)
	setString(&cfg.XAuthority, raw.XAuthority)
	setString(&cfg.SocketPath, raw.SocketPath)
	setString(&cfg.LogLevel, raw.LogLevel)
	setString(&cfg.LogFormat, raw.LogFormat)
	setString(&cfg.LogFile, raw.LogFile)

	if raw.Capture != nil {
		setString(&cfg.Capture.DefaultMode, raw.Capture.DefaultMode)
		if raw.Capture.ProbeOnStart != nil {
			v := *raw.Capture.ProbeOnStart
			cfg.Capture.ProbeOnStart = &v
		}
	}
	if raw.Input != nil && raw.Input.Enabled != nil {
		v := *raw.Input.Enabled
		cfg.Input.Enabled = &v
	}
	if raw.MCP != nil && raw.MCP.AllowInput != nil {
		v := *raw.MCP.AllowInput
		cfg.MCP.AllowInput = &v
	}
	if vd := raw.VirtualDisplay; vd != nil {
		setInt(&cfg.VirtualDisplay.Number, vd.Number)
		setInt(&cfg.VirtualDisplay.Width, vd.Width)
		setInt(&cfg.VirtualDisplay.Height, vd.Height)
		setInt(&cfg.VirtualDisplay.Depth, vd.Depth)
		setInt(&cfg.VirtualDisplay.StartupTimeoutMs, vd.StartupTimeoutMs)
	}
	return cfg
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
