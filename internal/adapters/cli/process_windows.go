//go:build windows

package cli

import (
	"os/exec"
	"syscall"
)

const createNoWindow = 0x08000000

// configureProcAttr keeps console windows from flashing when the app runs
// without a terminal. Cancellation uses the default Process.Kill.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNoWindow}
}
