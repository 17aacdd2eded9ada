package servicectl

import (
	"fmt"
	"strings"
)

// BuildSystemdUnit generates the unit file that runs the keeper under systemd.
// KillMode=mixed sends SIGTERM to the keeper only, which then stops its units.
func BuildSystemdUnit(options InstallOptions) string {
	var unit strings.Builder

	unit.WriteString("[Unit]\n")
	unit.WriteString(fmt.Sprintf("Description=%s\n", options.Description))
	unit.WriteString("After=network.target\n")
	unit.WriteString("\n")

	unit.WriteString("[Service]\n")
	unit.WriteString("Type=simple\n")
	unit.WriteString("Restart=on-failure\n")
	unit.WriteString("RestartSec=1\n")
	unit.WriteString("KillMode=mixed\n")
	unit.WriteString("KillSignal=SIGTERM\n")
	unit.WriteString("TimeoutStopSec=infinity\n")

	execStart := quoteArg(options.Executable)
	for _, arg := range options.Args {
		execStart += " " + quoteArg(arg)
	}
	unit.WriteString(fmt.Sprintf("ExecStart=%s\n", execStart))

	unit.WriteString("\n")
	unit.WriteString("[Install]\n")
	unit.WriteString("WantedBy=multi-user.target\n")

	return unit.String()
}

func quoteArg(arg string) string {
	if strings.ContainsAny(arg, " \t\n\"'\\$") {
		return fmt.Sprintf("%q", arg)
	}
	return arg
}
