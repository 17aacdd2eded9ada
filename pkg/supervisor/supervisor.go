package supervisor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/core-tools/hsu-keeper/pkg/logging"
	"github.com/core-tools/hsu-keeper/pkg/unit"
)

// DefaultPollPeriod is the restart loop period.
const DefaultPollPeriod = 100 * time.Millisecond

// Options configures unit supervisors.
type Options struct {
	PollPeriod time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollPeriod <= 0 {
		o.PollPeriod = DefaultPollPeriod
	}
	return o
}

// UnitStatus is a point-in-time view of one supervised unit.
type UnitStatus struct {
	ID       string
	Kind     unit.Kind
	Enabled  bool
	Live     bool
	Handle   string
	Starts   int64
	Exits    int64
	LastExit string
}

// UnitSupervisor owns one descriptor and its current handle and runs the restart loop.
// Only the Run goroutine touches the handle.
type UnitSupervisor struct {
	descriptor unit.Descriptor
	launcher   unit.Launcher
	options    Options
	logger     logging.Logger

	enabled atomic.Bool

	handle        unit.Handle
	startFailures int

	// restart backoff
	backoffAttempts int
	nextStartAt     time.Time
	startedAt       time.Time

	mu     sync.Mutex
	status UnitStatus
}

func NewUnitSupervisor(descriptor unit.Descriptor, launcher unit.Launcher, options Options, logger logging.Logger) *UnitSupervisor {
	s := &UnitSupervisor{
		descriptor: descriptor,
		launcher:   launcher,
		options:    options.withDefaults(),
		logger:     logging.WithPrefix(logger, "unit: "+descriptor.ID+" , "),
		status: UnitStatus{
			ID:      descriptor.ID,
			Kind:    descriptor.Kind,
			Enabled: descriptor.Enabled,
		},
	}
	s.enabled.Store(descriptor.Enabled)
	return s
}

func (s *UnitSupervisor) ID() string {
	return s.descriptor.ID
}

func (s *UnitSupervisor) Descriptor() unit.Descriptor {
	return s.descriptor
}

// Enabled reports the runtime enabled flag.
func (s *UnitSupervisor) Enabled() bool {
	return s.enabled.Load()
}

// SetEnabled toggles restarts at runtime. Disabling leaves a live handle running
// until shutdown; enabling resumes start attempts on the next cycle.
func (s *UnitSupervisor) SetEnabled(enabled bool) bool {
	if s.enabled.Swap(enabled) == enabled {
		return false
	}
	s.mu.Lock()
	s.status.Enabled = enabled
	s.mu.Unlock()
	if enabled {
		s.logger.Infof("Enabled")
	} else {
		s.logger.Infof("Disabled, a running worker is kept until shutdown")
	}
	return true
}

// Status returns a snapshot of the unit.
func (s *UnitSupervisor) Status() UnitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Run supervises the unit until signal is observed, then stops the current handle.
// The first cycle runs immediately, so an enabled unit starts on entry.
func (s *UnitSupervisor) Run(signal *ShutdownSignal) {
	s.logger.Infof("Supervising %s", s.descriptor)

	ticker := time.NewTicker(s.options.PollPeriod)
	defer ticker.Stop()

	for {
		if signal.IsSet() {
			s.shutdown()
			return
		}

		s.cycle(signal)

		select {
		case <-signal.Done():
		case <-ticker.C:
		}
	}
}

// cycle polls the handle even when disabled so the status stays accurate.
func (s *UnitSupervisor) cycle(signal *ShutdownSignal) {
	if s.handle != nil {
		status, err := s.handle.Poll()
		switch {
		case err != nil:
			s.logger.Warnf("Poll failed, treating %s as exited: %v", s.handle, err)
			s.discard("poll failed: " + err.Error())
		case status.Exited:
			s.logger.Warnf("%s exited: %s", s.handle, status.Detail)
			s.discard(status.Detail)
		default:
			return
		}
	}

	if !s.Enabled() {
		return
	}
	s.start(signal)
}

func (s *UnitSupervisor) start(signal *ShutdownSignal) {
	now := time.Now()
	if now.Before(s.nextStartAt) {
		return
	}
	// the signal may have been raised since the top of the cycle
	if signal.IsSet() {
		return
	}

	h, err := s.launcher.Launch(context.Background(), s.descriptor)
	if err != nil {
		s.startFailures++
		if s.startFailures == 1 {
			s.logger.Errorf("Start failed, retrying: %v", err)
		} else {
			s.logger.Debugf("Start failed, attempt %d: %v", s.startFailures, err)
		}
		s.scheduleBackoff(now)
		return
	}

	if s.startFailures > 1 {
		s.logger.Infof("Started after %d failed attempts", s.startFailures)
	}
	s.startFailures = 0
	s.handle = h
	s.startedAt = now

	s.mu.Lock()
	s.status.Starts++
	s.status.Live = true
	s.status.Handle = h.String()
	s.mu.Unlock()
}

// discard forgets an exited handle and arms the backoff for its replacement.
func (s *UnitSupervisor) discard(reason string) {
	s.handle.Release()
	s.handle = nil

	s.mu.Lock()
	s.status.Live = false
	s.status.Handle = ""
	s.status.Exits++
	s.status.LastExit = reason
	s.mu.Unlock()

	now := time.Now()
	backoff := s.descriptor.Backoff
	if backoff.Enabled() && !s.startedAt.IsZero() && now.Sub(s.startedAt) > resetAfter(backoff) {
		s.backoffAttempts = 0
	}
	s.scheduleBackoff(now)
}

func (s *UnitSupervisor) scheduleBackoff(now time.Time) {
	backoff := s.descriptor.Backoff
	if !backoff.Enabled() {
		return
	}
	delay := backoff.Delay(s.backoffAttempts)
	s.backoffAttempts++
	s.nextStartAt = now.Add(delay)
	s.logger.Infof("Next start in %v (attempt %d)", delay, s.backoffAttempts)
}

// resetAfter is how long a handle must stay alive to clear the backoff sequence.
func resetAfter(b unit.BackoffConfig) time.Duration {
	if b.MaxDelay > 0 {
		return b.MaxDelay
	}
	return b.InitialDelay
}

func (s *UnitSupervisor) shutdown() {
	if s.handle == nil {
		s.logger.Infof("Finished")
		return
	}

	s.logger.Infof("Stopping %s", s.handle)
	if err := s.handle.Stop(context.Background()); err != nil {
		s.logger.Errorf("Stop failed, continuing shutdown: %v", err)
	}
	s.handle.Release()
	s.handle = nil

	s.mu.Lock()
	s.status.Live = false
	s.status.Handle = ""
	s.mu.Unlock()

	s.logger.Infof("Finished")
}
