//go:build !windows

package process

import (
	"errors"
	"os"
	"syscall"
)

// killProcessTree sends SIGKILL to the process group (negative PID),
// falling back to the process alone when the group is already gone.
func killProcessTree(p *os.Process) error {
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ESRCH) {
		return p.Kill()
	}
	return err
}
