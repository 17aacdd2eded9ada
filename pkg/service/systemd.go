package service

import (
	"fmt"
	"strings"
)

// parseShowOutput maps `systemctl show --property=LoadState,ActiveState` output to a State.
func parseShowOutput(output string) (State, error) {
	properties := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			properties[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	if loadState := properties["LoadState"]; loadState == "not-found" {
		return StateUnknown, fmt.Errorf("service not found")
	}

	switch properties["ActiveState"] {
	case "active", "reloading":
		return StateRunning, nil
	case "activating":
		return StateStartPending, nil
	case "deactivating":
		return StateStopPending, nil
	case "inactive", "failed":
		return StateStopped, nil
	case "":
		return StateUnknown, fmt.Errorf("no ActiveState in systemctl output")
	default:
		return StateUnknown, nil
	}
}
