package xvfb

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// App is an application process running against a specific display.
type App struct {
	Name string
	Pid  int

	done chan struct{}
	err  error
	proc *os.Process
}

// Launch starts name with DISPLAY pointing at display. The calling
// process's own environment is left untouched.
func Launch(display, name string, args []string, stdout, stderr io.Writer) (*App, error) {
	cmd := commandFn(name, args...)
	cmd.Env = withDisplay(os.Environ(), display)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", name, err)
	}

	app := &App{
		Name: name,
		Pid:  cmd.Process.Pid,
		done: make(chan struct{}),
		proc: cmd.Process,
	}
	go func() {
		app.err = cmd.Wait()
		close(app.done)
	}()
	return app, nil
}

// Done is closed when the application exits.
func (a *App) Done() <-chan struct{} {
	return a.done
}

// Err returns the exit error once Done is closed.
func (a *App) Err() error {
	select {
	case <-a.done:
		return a.err
	default:
		return nil
	}
}

// Stop terminates the application if it is still running.
func (a *App) Stop() {
	terminate(a.proc, a.done)
}

func withDisplay(env []string, display string) []string {
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if strings.HasPrefix(kv, "DISPLAY=") {
			continue
		}
		out = append(out, kv)
	}
	return append(out, "DISPLAY="+display)
}
