package cli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/logging"
)

const installTimeout = 15 * time.Minute

// Install outcome messages.
const (
	BrewInstalledMessage   = "Copilot CLI installed via Homebrew."
	WingetInstalledMessage = "Copilot CLI installed via winget. Reload to pick it up."
	brewMissingMessage     = "Homebrew not found. Install it from https://brew.sh."
	wingetMissingMessage   = "winget not found. Install App Installer from the Microsoft Store."
	unsupportedMessage     = "Copilot install is only supported on macOS and Windows."
)

// runFunc executes name with args and returns stdout and stderr.
type runFunc func(ctx context.Context, name string, args ...string) (string, string, error)

// Installer installs the copilot CLI with the platform package manager.
type Installer struct {
	goos     string
	lookPath func(string) (string, error)
	run      runFunc
	logger   *logging.Logger
}

// NewInstaller returns an installer for the running platform.
func NewInstaller(logger *logging.Logger) *Installer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Installer{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run:      runCommand,
		logger:   logger.WithComponent("installer"),
	}
}

// Install runs the package manager and waits for it. The winget path runs
// synchronously so the caller can offer a reload once it returns.
func (i *Installer) Install(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	switch i.goos {
	case "darwin":
		brew, err := i.lookPath("brew")
		if err != nil {
			return "", core.ErrInstall(brewMissingMessage)
		}
		i.logger.Info("installing copilot via brew", "brew", brew)
		if _, stderr, err := i.run(ctx, brew, "install", "copilot-cli"); err != nil {
			return "", installFailure("brew", stderr, err)
		}
		return BrewInstalledMessage, nil

	case "windows":
		winget, err := i.lookPath("winget")
		if err != nil {
			return "", core.ErrInstall(wingetMissingMessage)
		}
		i.logger.Info("installing copilot via winget", "winget", winget)
		_, stderr, err := i.run(ctx, winget, "install", "GitHub.Copilot",
			"--silent", "--accept-package-agreements", "--accept-source-agreements")
		if err != nil {
			return "", installFailure("winget", stderr, err)
		}
		return WingetInstalledMessage, nil

	default:
		e := core.ErrInstall(unsupportedMessage)
		e.Code = core.CodeUnsupportedPlatform
		return "", e.WithDetail("goos", i.goos)
	}
}

func installFailure(tool, stderr string, err error) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		if _, ok := err.(*exec.ExitError); ok {
			msg = core.InstallFailedText
		} else {
			msg = fmt.Sprintf("Failed to run %s: %v", tool, err)
		}
	}
	return core.ErrInstall(msg).WithCause(err)
}

func runCommand(ctx context.Context, name string, args ...string) (string, string, error) {
	// #nosec G204 -- name is a resolved package manager path
	cmd := exec.CommandContext(ctx, name, args...)
	configureProcAttr(cmd)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
