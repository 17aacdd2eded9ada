package supervisor

import (
	"sync"
	"sync/atomic"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/logging"
	"github.com/core-tools/hsu-keeper/pkg/unit"
)

// Scheduler runs one UnitSupervisor per unit, all bound to one shutdown signal.
type Scheduler struct {
	launcher unit.Launcher
	options  Options
	logger   logging.Logger
}

func NewScheduler(launcher unit.Launcher, options Options, logger logging.Logger) *Scheduler {
	return &Scheduler{
		launcher: launcher,
		options:  options,
		logger:   logger,
	}
}

// TaskSet is the set of running supervision tasks.
type TaskSet struct {
	supervisors []*UnitSupervisor
	byID        map[string]*UnitSupervisor

	remaining atomic.Int32
	wg        sync.WaitGroup
	done      chan struct{}
}

// Start spawns a supervisor goroutine per unit and returns immediately. Units are
// isolated: the scheduler never inspects or retries their failures. A repeated
// unit ID is skipped, as it would break the one-handle-per-unit guarantee.
func (s *Scheduler) Start(units []unit.Descriptor, signal *ShutdownSignal) *TaskSet {
	ts := &TaskSet{
		byID: make(map[string]*UnitSupervisor, len(units)),
		done: make(chan struct{}),
	}

	for _, d := range units {
		if _, exists := ts.byID[d.ID]; exists {
			s.logger.Errorf("Duplicate unit ID, skipping: %s", d.ID)
			continue
		}
		sup := NewUnitSupervisor(d, s.launcher, s.options, s.logger)
		ts.supervisors = append(ts.supervisors, sup)
		ts.byID[d.ID] = sup
	}

	ts.remaining.Store(int32(len(ts.supervisors)))
	ts.wg.Add(len(ts.supervisors))

	for _, sup := range ts.supervisors {
		go func(sup *UnitSupervisor) {
			defer ts.wg.Done()
			defer ts.remaining.Add(-1)
			sup.Run(signal)
		}(sup)
	}

	go func() {
		ts.wg.Wait()
		close(ts.done)
	}()

	s.logger.Infof("Scheduled %d units", len(ts.supervisors))

	return ts
}

// Finished reports whether every supervision task has returned.
func (ts *TaskSet) Finished() bool {
	select {
	case <-ts.done:
		return true
	default:
		return false
	}
}

// Done is closed once every supervision task has returned.
func (ts *TaskSet) Done() <-chan struct{} {
	return ts.done
}

// Wait blocks until every supervision task has returned.
func (ts *TaskSet) Wait() {
	<-ts.done
}

// Remaining is the number of tasks still running.
func (ts *TaskSet) Remaining() int {
	return int(ts.remaining.Load())
}

// SetEnabled toggles one unit at runtime.
func (ts *TaskSet) SetEnabled(id string, enabled bool) (bool, error) {
	sup, ok := ts.byID[id]
	if !ok {
		return false, errors.NewNotFoundError("unknown unit", nil).WithContext("unit", id)
	}
	return sup.SetEnabled(enabled), nil
}

// Status returns a snapshot of one unit.
func (ts *TaskSet) Status(id string) (UnitStatus, bool) {
	sup, ok := ts.byID[id]
	if !ok {
		return UnitStatus{}, false
	}
	return sup.Status(), true
}

// Statuses returns a snapshot of every unit in load order.
func (ts *TaskSet) Statuses() []UnitStatus {
	statuses := make([]UnitStatus, 0, len(ts.supervisors))
	for _, sup := range ts.supervisors {
		statuses = append(statuses, sup.Status())
	}
	return statuses
}

// Len is the number of supervised units.
func (ts *TaskSet) Len() int {
	return len(ts.supervisors)
}
