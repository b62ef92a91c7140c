package cli

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// binaryNames are tried in order on PATH.
var binaryNames = []string{"copilot", "github-copilot"}

// wellKnownPaths are checked when PATH lookup fails, which happens when
// the app is started from a desktop launcher with a minimal PATH.
func wellKnownPaths(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/opt/homebrew/bin/copilot",
			"/usr/local/bin/copilot",
			"/opt/local/bin/copilot",
		}
	case "windows":
		var out []string
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			out = append(out, filepath.Join(local, "Microsoft", "WinGet", "Links", "copilot.exe"))
		}
		if appData := os.Getenv("APPDATA"); appData != "" {
			out = append(out, filepath.Join(appData, "npm", "copilot.cmd"))
		}
		return out
	default:
		var out []string
		if home, err := os.UserHomeDir(); err == nil {
			out = append(out, filepath.Join(home, ".local", "bin", "copilot"))
		}
		return append(out, "/usr/local/bin/copilot", "/usr/bin/copilot")
	}
}

// extraPathDirs are prepended to PATH for the child process.
func extraPathDirs(goos string) []string {
	if goos == "darwin" {
		return []string{"/opt/homebrew/bin", "/usr/local/bin"}
	}
	return nil
}

// Resolver finds the copilot binary.
type Resolver struct {
	Override string
	goos     string
	lookPath func(string) (string, error)
	exists   func(string) bool
}

// NewResolver returns a resolver for the running platform. A non-empty
// override is used as-is.
func NewResolver(override string) *Resolver {
	return &Resolver{
		Override: override,
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		exists: func(p string) bool {
			info, err := os.Stat(p)
			return err == nil && !info.IsDir()
		},
	}
}

// Resolve returns the binary path and whether it was actually found.
// When nothing is found the bare name "copilot" is returned for exec.
func (r *Resolver) Resolve() (string, bool) {
	if r.Override != "" {
		if p, err := r.lookPath(r.Override); err == nil {
			return p, true
		}
		return r.Override, r.exists(r.Override)
	}
	for _, name := range binaryNames {
		if p, err := r.lookPath(name); err == nil {
			return p, true
		}
	}
	for _, p := range wellKnownPaths(r.goos) {
		if r.exists(p) {
			return p, true
		}
	}
	return binaryNames[0], false
}

// AugmentedPath returns the PATH value for child processes.
func (r *Resolver) AugmentedPath() string {
	current := os.Getenv("PATH")
	extra := extraPathDirs(r.goos)
	if len(extra) == 0 {
		return current
	}
	joined := strings.Join(extra, string(os.PathListSeparator))
	if current == "" {
		return joined
	}
	return joined + string(os.PathListSeparator) + current
}
