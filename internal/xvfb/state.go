package xvfb

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// State records a running virtual display for "xdesk status".
type State struct {
	Display   string    `json:"display"`
	Size      string    `json:"size"`
	XvfbPid   int       `json:"xvfb_pid"`
	App       string    `json:"app,omitempty"`
	AppPid    int       `json:"app_pid,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

func WriteState(path string, st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal virtual display state: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write virtual display state: %w", err)
	}
	return nil
}

// ReadState returns (nil, nil) when no virtual display is recorded.
func ReadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read virtual display state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse virtual display state: %w", err)
	}
	return &st, nil
}
