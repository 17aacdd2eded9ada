//go:build !windows

package processstate

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// IsProcessRunning probes pid with signal 0. A process owned by another user
// (EPERM) counts as running.
func IsProcessRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, fmt.Errorf("invalid PID: %d", pid)
	}

	// On Unix FindProcess always succeeds, the signal is the real check.
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, err
	}

	err = process.Signal(syscall.Signal(0))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		return false, nil
	case errors.Is(err, syscall.EPERM):
		return true, nil
	default:
		return false, err
	}
}
