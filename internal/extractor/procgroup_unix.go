//go:build linux || darwin || freebsd || netbsd || openbsd

package extractor

import (
	"os/exec"
	"syscall"
)

// killProcessGroup starts the command in its own process group and makes
// cancellation signal the whole group.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
