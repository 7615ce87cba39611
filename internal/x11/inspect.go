package x11

import "fmt"

// Inspector answers diagnostic queries, each on a fresh temporary connection.
type Inspector struct {
	Display string
}

// Monitors lists the active RandR monitors.
func (i Inspector) Monitors() ([]Monitor, error) {
	conn, err := NewConnection(i.Display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	defer conn.Close()

	return conn.GetMonitors()
}

// Windows lists the root's top-level windows.
func (i Inspector) Windows() ([]WindowInfo, error) {
	conn, err := NewConnection(i.Display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	defer conn.Close()

	return conn.TopLevelWindows()
}
