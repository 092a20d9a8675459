//go:build !windows

package opencode

import (
	"os"
	"os/exec"
	"syscall"
)

func applyServeSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}

func terminateProcess(process *os.Process) error {
	return process.Signal(syscall.SIGTERM)
}
