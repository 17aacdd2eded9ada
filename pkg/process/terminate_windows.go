//go:build windows

package process

import (
	"os"
)

// killProcessTree terminates the process. Children started by the unit are not
// tracked on Windows; units that fork (nginx) are expected to use a stop hook.
func killProcessTree(p *os.Process) error {
	return p.Kill()
}
