package config

import (
	"fmt"
	"sort"
)

// explainPaths maps every supported YAML path to its effective value.
var explainPaths = map[string]func(*Config) any{
	"display":                            func(c *Config) any { return c.Display },
	"xauthority":                         func(c *Config) any { return c.XAuthority },
	"socket_path":                        func(c *Config) any { return c.SocketPath },
	"log_level":                          func(c *Config) any { return c.LogLevel },
	"log_format":                         func(c *Config) any { return c.LogFormat },
	"log_file":                           func(c *Config) any { return c.LogFile },
	"capture.default_mode":               func(c *Config) any { return c.Capture.DefaultMode },
	"capture.probe_on_start":             func(c *Config) any { return c.Capture.GetProbeOnStart() },
	"input.enabled":                      func(c *Config) any { return c.Input.GetEnabled() },
	"mcp.allow_input":                    func(c *Config) any { return c.MCP.GetAllowInput() },
	"virtual_display.number":             func(c *Config) any { return c.VirtualDisplay.Number },
	"virtual_display.width":              func(c *Config) any { return c.VirtualDisplay.Width },
	"virtual_display.height":             func(c *Config) any { return c.VirtualDisplay.Height },
	"virtual_display.depth":              func(c *Config) any { return c.VirtualDisplay.Depth },
	"virtual_display.startup_timeout_ms": func(c *Config) any { return c.VirtualDisplay.StartupTimeoutMs },
}

// Explain returns the effective value at the given YAML path and where it
// came from.
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	get, ok := explainPaths[path]
	if !ok {
		return nil, Source{}, fmt.Errorf("unknown path: %s", path)
	}
	value := get(res.Config)

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault}, nil
}

// ExplainPaths lists the paths Explain understands, sorted.
func ExplainPaths() []string {
	paths := make([]string, 0, len(explainPaths))
	for p := range explainPaths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
