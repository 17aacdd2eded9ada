package lifecycle

import "time"

// State is the keeper status as seen by the host.
type State int

const (
	Running State = iota
	Paused
	StopPending
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case StopPending:
		return "stop_pending"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Event is a control request from the host.
type Event int

const (
	Interrogate Event = iota
	Continue
	Pause
	Stop
)

func (e Event) String() string {
	switch e {
	case Interrogate:
		return "interrogate"
	case Continue:
		return "continue"
	case Pause:
		return "pause"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Controls is the set of events the keeper accepts in a given state.
type Controls uint32

const (
	AcceptStop Controls = 1 << iota
	AcceptPauseContinue
	AcceptShutdown
)

func (c Controls) Has(flag Controls) bool {
	return c&flag != 0
}

// StatusReport is what the host is told after every transition.
type StatusReport struct {
	State      State
	Accepts    Controls
	Checkpoint uint32
	WaitHint   time.Duration
}

// Reporter delivers status reports to the host. An error is fatal to the bridge.
type Reporter interface {
	Report(status StatusReport) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(status StatusReport) error

func (f ReporterFunc) Report(status StatusReport) error {
	return f(status)
}
