//go:build !windows

package cli

import (
	"errors"
	"os/exec"
	"syscall"
)

// configureProcAttr puts the child in its own process group and makes
// context cancellation signal the whole group, so helpers spawned by the
// CLI die with it.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return err
	}
}
