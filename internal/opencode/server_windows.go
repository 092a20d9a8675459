//go:build windows

package opencode

import (
	"os"
	"os/exec"
)

func applyServeSysProcAttr(cmd *exec.Cmd) {}

func terminateProcess(process *os.Process) error {
	return process.Kill()
}
