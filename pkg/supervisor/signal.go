package supervisor

import (
	"sync"
	"sync/atomic"
)

// ShutdownSignal is the write-once, read-many flag that tells every unit to stop.
// It is never reset.
type ShutdownSignal struct {
	set  atomic.Bool
	once sync.Once
	done chan struct{}
}

func NewShutdownSignal() *ShutdownSignal {
	return &ShutdownSignal{done: make(chan struct{})}
}

// Set raises the signal. It returns true only for the call that raised it.
func (s *ShutdownSignal) Set() bool {
	raised := false
	s.once.Do(func() {
		s.set.Store(true)
		close(s.done)
		raised = true
	})
	return raised
}

// IsSet reports whether the signal has been raised.
func (s *ShutdownSignal) IsSet() bool {
	return s.set.Load()
}

// Done is closed when the signal is raised.
func (s *ShutdownSignal) Done() <-chan struct{} {
	return s.done
}
