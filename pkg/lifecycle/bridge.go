package lifecycle

import (
	"sync"
	"time"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/logging"
	"github.com/core-tools/hsu-keeper/pkg/supervisor"
)

const (
	DefaultEventTimeout = 1 * time.Second
	DefaultStopWaitHint = 5 * time.Second
)

// Completion is the joint completion of the supervision tasks.
type Completion interface {
	Finished() bool
	Done() <-chan struct{}
}

type Options struct {
	// EventTimeout bounds each wait for a control event.
	EventTimeout time.Duration
	// StopWaitHint is reported with every StopPending status.
	StopWaitHint time.Duration
	// StopHooks run once, in the background, when a stop is requested.
	StopHooks []func()
}

// Bridge translates host control events into the shutdown signal and reports
// status back until every supervision task has finished.
type Bridge struct {
	events   <-chan Event
	signal   *supervisor.ShutdownSignal
	tasks    Completion
	reporter Reporter
	options  Options
	logger   logging.Logger

	mu         sync.Mutex
	state      State
	checkpoint uint32
}

func NewBridge(events <-chan Event, signal *supervisor.ShutdownSignal, tasks Completion, reporter Reporter, options Options, logger logging.Logger) *Bridge {
	if options.EventTimeout <= 0 {
		options.EventTimeout = DefaultEventTimeout
	}
	if options.StopWaitHint <= 0 {
		options.StopWaitHint = DefaultStopWaitHint
	}
	return &Bridge{
		events:   events,
		signal:   signal,
		tasks:    tasks,
		reporter: reporter,
		options:  options,
		logger:   logging.WithPrefix(logger, "lifecycle: "),
		state:    Running,
	}
}

// State returns the current keeper state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Run reports Running and processes events until Stopped has been reported or
// the event channel is closed. Only a failed status report is returned as an error.
func (b *Bridge) Run() error {
	if err := b.transition(Running); err != nil {
		return err
	}

	timer := time.NewTimer(b.options.EventTimeout)
	defer timer.Stop()

	for {
		if b.State() == StopPending {
			if b.tasks.Finished() {
				return b.transition(Stopped)
			}
		}

		resetTimer(timer, b.options.EventTimeout)

		var pending <-chan struct{}
		if b.State() == StopPending {
			pending = b.tasks.Done()
		}

		select {
		case event, ok := <-b.events:
			if !ok {
				b.logger.Infof("Control channel closed, stopping without report")
				b.signal.Set()
				return nil
			}
			if err := b.handle(event); err != nil {
				return err
			}

		case <-pending:
			// loop to report Stopped

		case <-timer.C:
			if b.State() == StopPending && !b.tasks.Finished() {
				if err := b.progress(); err != nil {
					return err
				}
			}
		}
	}
}

func (b *Bridge) handle(event Event) error {
	state := b.State()
	b.logger.Debugf("Event %s in state %s", event, state)

	switch event {
	case Interrogate:
		return b.report()

	case Pause:
		if state == Running {
			return b.transition(Paused)
		}
		return b.report()

	case Continue:
		if state == Paused {
			return b.transition(Running)
		}
		return b.report()

	case Stop:
		if state == StopPending || state == Stopped {
			return b.report()
		}
		if err := b.transition(StopPending); err != nil {
			return err
		}
		b.logger.Infof("Stop requested, signalling all units")
		b.signal.Set()
		b.runStopHooks()
		return nil

	default:
		b.logger.Warnf("Ignoring unknown event %d", int(event))
		return nil
	}
}

func (b *Bridge) runStopHooks() {
	for _, hook := range b.options.StopHooks {
		go hook()
	}
}

func (b *Bridge) transition(state State) error {
	b.mu.Lock()
	b.state = state
	if state == StopPending {
		b.checkpoint = 1
	} else {
		b.checkpoint = 0
	}
	b.mu.Unlock()

	b.logger.Infof("State %s", state)
	return b.report()
}

func (b *Bridge) progress() error {
	b.mu.Lock()
	b.checkpoint++
	b.mu.Unlock()
	return b.report()
}

func (b *Bridge) report() error {
	b.mu.Lock()
	status := StatusReport{
		State:      b.state,
		Accepts:    acceptedControls(b.state),
		Checkpoint: b.checkpoint,
	}
	if b.state == StopPending {
		status.WaitHint = b.options.StopWaitHint
	}
	b.mu.Unlock()

	if err := b.reporter.Report(status); err != nil {
		b.logger.Errorf("Status report failed: %v", err)
		return errors.NewHostReportError("failed to report status", err).WithContext("state", status.State.String())
	}
	return nil
}

func acceptedControls(state State) Controls {
	switch state {
	case Running, Paused:
		return AcceptStop | AcceptPauseContinue | AcceptShutdown
	default:
		return 0
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
