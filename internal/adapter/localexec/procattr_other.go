//go:build !unix

package localexec

import "os/exec"

func setProcessGroup(*exec.Cmd) {}

func exitCode(err *exec.ExitError) int { return err.ExitCode() }
