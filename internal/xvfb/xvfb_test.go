package xvfb

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// fakeXvfb creates the lock file named by $1 and removes it on SIGTERM.
const fakeXvfb = `trap 'rm -f "$1"; exit 0' TERM; touch "$1"; while :; do sleep 0.01; done`

type launched struct {
	name string
	args []string
}

// stubCommand routes every command to sh -c script with the lock path as $1
// and records what was asked for.
func stubCommand(t *testing.T, script string) (lockPath string, calls *[]launched) {
	t.Helper()
	dir := t.TempDir()
	lockPath = filepath.Join(dir, "X-lock")

	origCommand, origLock, origPoll := commandFn, lockPathFn, pollInterval
	t.Cleanup(func() {
		commandFn, lockPathFn, pollInterval = origCommand, origLock, origPoll
	})

	var recorded []launched
	commandFn = func(name string, args ...string) *exec.Cmd {
		recorded = append(recorded, launched{name: name, args: args})
		return exec.Command("sh", "-c", script, "sh", lockPath)
	}
	lockPathFn = func(int) string { return lockPath }
	pollInterval = 5 * time.Millisecond
	return lockPath, &recorded
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    Size
		wantErr bool
	}{
		{"1200x720x24", Size{1200, 720, 24}, false},
		{"1920X1080", Size{1920, 1080, 24}, false},
		{" 800x600x16 ", Size{800, 600, 16}, false},
		{"800", Size{}, true},
		{"800x0x24", Size{}, true},
		{"axbxc", Size{}, true},
		{"1x2x3x4", Size{}, true},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseSize(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseSize(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestServer_Args(t *testing.T) {
	s := &Server{Number: 99, Size: Size{1200, 720, 24}}
	want := []string{":99", "-screen", "0", "1200x720x24"}
	if got := s.Args(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Args() = %v, want %v", got, want)
	}
	if got := (&Server{Number: 7}).LockPath(); got != "/tmp/.X7-lock" {
		t.Fatalf("LockPath() = %q", got)
	}
}

func TestServer_StartStop(t *testing.T) {
	lockPath, calls := stubCommand(t, fakeXvfb)
	s := &Server{Number: 42, Size: Size{640, 480, 24}, StartupTimeout: 5 * time.Second}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := os.Stat(lockPath); err != nil {
		t.Fatalf("lock file missing after Start: %v", err)
	}
	if s.Pid() <= 0 {
		t.Fatalf("Pid() = %d after Start", s.Pid())
	}
	if len(*calls) != 1 || (*calls)[0].name != "Xvfb" || (*calls)[0].args[0] != ":42" {
		t.Fatalf("unexpected launches %+v", *calls)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Fatalf("lock file still present after Stop: %v", err)
	}
	select {
	case <-s.Done():
	default:
		t.Fatalf("Done not closed after Stop")
	}
	if s.Pid() != 0 {
		t.Fatalf("Pid() = %d after Stop", s.Pid())
	}
}

func TestServer_StopRightAfterStart(t *testing.T) {
	lockPath, _ := stubCommand(t, fakeXvfb)

	// Start returns as soon as the lock appears, so Stop races the script's
	// startup; the TERM handler must already be installed by then.
	for i := 0; i < 20; i++ {
		s := &Server{Number: 42, Size: Size{640, 480, 24}, StartupTimeout: 5 * time.Second}
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("iteration %d: Start: %v", i, err)
		}
		if err := s.Stop(); err != nil {
			t.Fatalf("iteration %d: Stop: %v", i, err)
		}
		if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
			t.Fatalf("iteration %d: lock file still present after Stop: %v", i, err)
		}
	}
}

func TestServer_RefusesLockedDisplay(t *testing.T) {
	lockPath, calls := stubCommand(t, fakeXvfb)
	if err := os.WriteFile(lockPath, []byte("1234\n"), 0644); err != nil {
		t.Fatalf("write lock: %v", err)
	}

	s := &Server{Number: 1, Size: Size{10, 10, 24}, StartupTimeout: time.Second}
	err := s.Start(context.Background())
	if !errors.Is(err, ErrDisplayInUse) {
		t.Fatalf("Start error = %v, want ErrDisplayInUse", err)
	}
	if len(*calls) != 0 {
		t.Fatalf("Xvfb launched on a locked display: %+v", *calls)
	}
}

func TestServer_StartTimeout(t *testing.T) {
	lockPath, _ := stubCommand(t, `exec sleep 5`)
	s := &Server{Number: 2, Size: Size{10, 10, 24}, StartupTimeout: 50 * time.Millisecond}

	err := s.Start(context.Background())
	if !errors.Is(err, ErrStartTimeout) {
		t.Fatalf("Start error = %v, want ErrStartTimeout", err)
	}
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("process not reaped after start timeout")
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Fatalf("unexpected lock file: %v", err)
	}
}

func TestServer_StartEarlyExit(t *testing.T) {
	stubCommand(t, `exit 3`)
	s := &Server{Number: 3, Size: Size{10, 10, 24}, StartupTimeout: 5 * time.Second}

	err := s.Start(context.Background())
	if !errors.Is(err, ErrStartTimeout) || !strings.Contains(err.Error(), "exited early") {
		t.Fatalf("Start error = %v, want early exit", err)
	}
}

func TestServer_StartCancelled(t *testing.T) {
	stubCommand(t, `exec sleep 5`)
	s := &Server{Number: 4, Size: Size{10, 10, 24}, StartupTimeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := s.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Start error = %v, want deadline exceeded", err)
	}
}

func TestLaunch_SetsDisplay(t *testing.T) {
	orig := commandFn
	defer func() { commandFn = orig }()
	commandFn = exec.Command

	t.Setenv("DISPLAY", ":0")
	var out bytes.Buffer
	app, err := Launch(":77", "sh", []string{"-c", `echo "$DISPLAY"`}, &out, nil)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	select {
	case <-app.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("app did not exit")
	}
	if err := app.Err(); err != nil {
		t.Fatalf("app error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != ":77" {
		t.Fatalf("child DISPLAY = %q, want :77", got)
	}
	if os.Getenv("DISPLAY") != ":0" {
		t.Fatalf("parent DISPLAY changed to %q", os.Getenv("DISPLAY"))
	}
}

func TestApp_Stop(t *testing.T) {
	orig := commandFn
	defer func() { commandFn = orig }()
	commandFn = exec.Command

	app, err := Launch(":1", "sleep", []string{"5"}, nil, nil)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	app.Stop()
	select {
	case <-app.Done():
	default:
		t.Fatalf("Done not closed after Stop")
	}
	if app.Err() == nil {
		t.Fatalf("expected a signal exit error")
	}
}

func TestWithDisplay(t *testing.T) {
	got := withDisplay([]string{"HOME=/root", "DISPLAY=:0", "PATH=/bin"}, ":5")
	want := []string{"HOME=/root", "PATH=/bin", "DISPLAY=:5"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("withDisplay = %v, want %v", got, want)
	}
}

func TestReadState_Missing(t *testing.T) {
	st, err := ReadState(filepath.Join(t.TempDir(), "none.json"))
	if err != nil || st != nil {
		t.Fatalf("ReadState(missing) = %+v, %v", st, err)
	}
}

func TestWriteReadState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	want := State{Display: ":99", Size: "1200x720x24", XvfbPid: 10, App: "xterm", AppPid: 11, StartedAt: time.Unix(1700000000, 0).UTC()}
	if err := WriteState(path, want); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	got, err := ReadState(path)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if !got.StartedAt.Equal(want.StartedAt) || got.Display != want.Display || got.AppPid != want.AppPid {
		t.Fatalf("ReadState = %+v, want %+v", got, want)
	}
}
