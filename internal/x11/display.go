package x11

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

var (
	runCommandOutputFn        = runCommandOutput
	readFileFn                = os.ReadFile
	readDirFn                 = os.ReadDir
	getenvFn                  = os.Getenv
	detectSessionX11EnvFn     = detectSessionX11Env
	detectDisplayFromSocketFn = detectDisplayFromSockets
)

// ResolveDisplay picks the X display to talk to. Priority:
// 1) the configured display (if set)
// 2) $DISPLAY
// 3) the Display of the user's graphical loginctl session
// 4) the highest-numbered socket in /tmp/.X11-unix
// Returns "" when nothing was found; NewConnection then fails with the
// usual xgb error.
func ResolveDisplay(configured string) string {
	if d := strings.TrimSpace(configured); d != "" {
		return d
	}
	if d := strings.TrimSpace(getenvFn("DISPLAY")); d != "" {
		return d
	}
	if d, _ := detectSessionX11EnvFn(); strings.TrimSpace(d) != "" {
		return strings.TrimSpace(d)
	}
	return detectDisplayFromSocketFn("/tmp/.X11-unix")
}

// ResolveXAuthority picks the cookie file for the session, or "".
func ResolveXAuthority(configured string) string {
	if x := strings.TrimSpace(configured); x != "" {
		return x
	}
	if x := strings.TrimSpace(getenvFn("XAUTHORITY")); x != "" {
		return x
	}
	if _, x := detectSessionX11EnvFn(); strings.TrimSpace(x) != "" {
		return strings.TrimSpace(x)
	}

	home := strings.TrimSpace(getenvFn("HOME"))
	if home == "" {
		if detectedHome, err := os.UserHomeDir(); err == nil {
			home = detectedHome
		}
	}
	if home != "" {
		candidate := filepath.Join(home, ".Xauthority")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func runCommandOutput(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func detectSessionX11Env() (display string, xauthority string) {
	uid := strconv.Itoa(os.Getuid())
	out, err := runCommandOutputFn("loginctl", "list-sessions", "--no-legend")
	if err != nil {
		return "", ""
	}
	for _, sessionID := range parseLoginctlSessions(out, uid) {
		d := strings.TrimSpace(loginctlShowSessionProp(sessionID, "Display"))
		if d == "" || strings.EqualFold(d, "n/a") {
			continue
		}

		xauth := ""
		leader := strings.TrimSpace(loginctlShowSessionProp(sessionID, "Leader"))
		if leader != "" && leader != "0" {
			if envMap, err := readProcEnviron(leader); err == nil {
				if ed := strings.TrimSpace(envMap["DISPLAY"]); ed != "" {
					d = ed
				}
				xauth = strings.TrimSpace(envMap["XAUTHORITY"])
			}
		}
		return d, xauth
	}
	return "", ""
}

func parseLoginctlSessions(output string, uid string) []string {
	var sessions []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 {
			continue
		}
		if fields[1] == uid {
			sessions = append(sessions, fields[0])
		}
	}
	return sessions
}

func loginctlShowSessionProp(sessionID string, prop string) string {
	out, err := runCommandOutputFn("loginctl", "show-session", sessionID, "-p", prop, "--value")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func readProcEnviron(pid string) (map[string]string, error) {
	data, err := readFileFn(filepath.Join("/proc", pid, "environ"))
	if err != nil {
		return nil, err
	}

	env := make(map[string]string)
	for _, part := range strings.Split(string(data), "\x00") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		env[kv[0]] = kv[1]
	}
	return env, nil
}

func detectDisplayFromSockets(dir string) string {
	entries, err := readDirFn(dir)
	if err != nil {
		return ""
	}

	var displays []int
	for _, entry := range entries {
		name := entry.Name()
		if len(name) < 2 || name[0] != 'X' {
			continue
		}
		n, err := strconv.Atoi(name[1:])
		if err != nil {
			continue
		}
		displays = append(displays, n)
	}

	if len(displays) == 0 {
		return ""
	}
	sort.Ints(displays)
	return fmt.Sprintf(":%d", displays[len(displays)-1])
}
