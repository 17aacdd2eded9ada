package unit

import (
	"fmt"
	"strings"
	"time"
)

// Kind tags the variant of a supervised unit.
type Kind string

const (
	KindProcess Kind = "process"
	KindService Kind = "service"
)

// ProcessSpec identifies a spawned worker: program, arguments and working directory.
type ProcessSpec struct {
	Program     string
	Args        []string
	Dir         string
	Environment []string
}

// ServiceSpec identifies a worker owned by the host service manager.
type ServiceSpec struct {
	Name string
}

// BackoffConfig enables delayed restarts. The zero value means restart immediately.
type BackoffConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	BackoffRate  float64
}

// Enabled reports whether any delay is configured.
func (b BackoffConfig) Enabled() bool {
	return b.InitialDelay > 0
}

// Delay returns the wait before the n-th consecutive restart (n starts at 0).
func (b BackoffConfig) Delay(n int) time.Duration {
	if !b.Enabled() {
		return 0
	}
	rate := b.BackoffRate
	if rate < 1 {
		rate = 1
	}
	delay := float64(b.InitialDelay)
	for i := 0; i < n; i++ {
		delay *= rate
		if b.MaxDelay > 0 && delay >= float64(b.MaxDelay) {
			return b.MaxDelay
		}
	}
	if b.MaxDelay > 0 && time.Duration(delay) > b.MaxDelay {
		return b.MaxDelay
	}
	return time.Duration(delay)
}

// Descriptor is the immutable configuration of one supervised unit.
// Exactly one of Process or Service is set, matching Kind.
type Descriptor struct {
	ID      string
	Kind    Kind
	Process *ProcessSpec
	Service *ServiceSpec
	Enabled bool
	Backoff BackoffConfig
}

// Identity is a short human-readable description of what the unit runs.
func (d Descriptor) Identity() string {
	switch d.Kind {
	case KindProcess:
		if d.Process == nil {
			return "<no process>"
		}
		identity := d.Process.Program
		if len(d.Process.Args) > 0 {
			identity += " " + strings.Join(d.Process.Args, " ")
		}
		if d.Process.Dir != "" {
			identity += " (in " + d.Process.Dir + ")"
		}
		return identity
	case KindService:
		if d.Service == nil {
			return "<no service>"
		}
		return d.Service.Name
	default:
		return "<unknown>"
	}
}

func (d Descriptor) String() string {
	state := "enabled"
	if !d.Enabled {
		state = "disabled"
	}
	return fmt.Sprintf("%s %s [%s]: %s", d.Kind, d.ID, state, d.Identity())
}
