//go:build !windows

package host

import (
	"github.com/core-tools/hsu-keeper/pkg/logging"
)

// IsService is always false: init systems run the keeper as a plain process.
func IsService() (bool, error) {
	return false, nil
}

// RunService runs under the console host, where the init system delivers
// SIGTERM on stop.
func RunService(name string, run RunFunc, logger logging.Logger) error {
	logger.Infof("Running %s under the init system", name)
	return NewConsole(logger).Run(run)
}
