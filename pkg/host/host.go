package host

import (
	"github.com/core-tools/hsu-keeper/pkg/lifecycle"
)

// RunFunc runs the keeper against a host's control events and status sink.
// It returns once Stopped was reported, the events channel closed, or a report failed.
type RunFunc func(events <-chan lifecycle.Event, reporter lifecycle.Reporter) error

// eventBuffer keeps the host's own dispatcher from blocking on the bridge.
const eventBuffer = 16
