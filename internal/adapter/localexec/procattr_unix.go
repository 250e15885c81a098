//go:build unix

package localexec

import (
	"os/exec"
	"syscall"
)

// setProcessGroup makes a timeout kill the whole command tree, not just sh.
func setProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		return syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
	}
}

// exitCode reports a signal death as 128+signal, the way sh does, instead of
// the -1 ExitCode returns for it.
func exitCode(err *exec.ExitError) int {
	if ws, ok := err.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return err.ExitCode()
}
