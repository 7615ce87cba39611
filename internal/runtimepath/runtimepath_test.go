package runtimepath

import (
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestDir_UsesXDGRuntimeDirWhenSet(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_FallbacksWhenXDGRuntimeDirMissing(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}

	wantRun := fmt.Sprintf("/run/user/%d", os.Getuid())
	wantTmp := fmt.Sprintf("/tmp/xdesk-runtime-%d", os.Getuid())
	if got != wantRun && got != wantTmp {
		t.Fatalf("Dir() = %q, want %q or %q", got, wantRun, wantTmp)
	}
}

func TestSocketPath(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	socket, err := SocketPath("")
	if err != nil {
		t.Fatalf("SocketPath() error: %v", err)
	}
	if socket != td+"/xdesk.sock" {
		t.Fatalf("SocketPath() = %q, want %q", socket, td+"/xdesk.sock")
	}

	socket, err = SocketPath("/srv/xdesk/ctl.sock")
	if err != nil {
		t.Fatalf("SocketPath(configured) error: %v", err)
	}
	if socket != "/srv/xdesk/ctl.sock" {
		t.Fatalf("SocketPath(configured) = %q", socket)
	}
}

func TestVirtualStatePath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	p, err := VirtualStatePath()
	if err != nil {
		t.Fatalf("VirtualStatePath() error: %v", err)
	}
	if !strings.HasSuffix(p, "/xdesk-virtual.json") {
		t.Fatalf("VirtualStatePath() = %q, missing suffix", p)
	}
}
