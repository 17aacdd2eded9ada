package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/logging"
	"github.com/core-tools/hsu-keeper/pkg/unit"
)

// State is the host service manager's view of a service, normalized across platforms.
type State string

const (
	StateStopped         State = "stopped"
	StateStartPending    State = "start_pending"
	StateStopPending     State = "stop_pending"
	StateRunning         State = "running"
	StateContinuePending State = "continue_pending"
	StatePausePending    State = "pause_pending"
	StatePaused          State = "paused"
	StateUnknown         State = "unknown"
)

// Alive reports whether the service should be left alone. Pending transitions and
// the paused state count as alive since the manager would reject a start anyway.
func (s State) Alive() bool {
	switch s {
	case StateRunning, StateStartPending, StateContinuePending, StatePausePending, StatePaused:
		return true
	default:
		return false
	}
}

// controller is the platform binding to the host service manager for one service.
type controller interface {
	Query(ctx context.Context) (State, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Close()
}

// Options tunes service handles.
type Options struct {
	// PollPeriod is the interval between status queries while waiting for a stop.
	PollPeriod time.Duration
	// CommandTimeout bounds each individual manager request.
	CommandTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollPeriod <= 0 {
		o.PollPeriod = 100 * time.Millisecond
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = 30 * time.Second
	}
	return o
}

// Handle is one opened service. It holds the manager references until released.
type Handle struct {
	id      string
	name    string
	ctl     controller
	options Options
	logger  logging.Logger

	releaseOnce sync.Once
}

var _ unit.Handle = (*Handle)(nil)

// Open connects to the host service manager, opens the named service and starts it
// unless it is already running.
func Open(id string, spec unit.ServiceSpec, options Options, logger logging.Logger) (*Handle, error) {
	ctl, err := newController(spec.Name)
	if err != nil {
		return nil, errors.NewStartError("failed to open service", err).
			WithContext("unit", id).
			WithContext("service", spec.Name)
	}
	return open(id, spec.Name, ctl, options, logger)
}

func open(id, name string, ctl controller, options Options, logger logging.Logger) (*Handle, error) {
	h := &Handle{
		id:      id,
		name:    name,
		ctl:     ctl,
		options: options.withDefaults(),
		logger:  logger,
	}

	ctx, cancel := h.commandContext(context.Background())
	defer cancel()

	state, err := ctl.Query(ctx)
	if err != nil {
		h.Release()
		return nil, errors.NewStartError("failed to query service", err).
			WithContext("unit", id).
			WithContext("service", name)
	}

	if state.Alive() {
		logger.Infof("Service already %s, unit: %s, service: %s", state, id, name)
		return h, nil
	}

	if err := ctl.Start(ctx); err != nil {
		h.Release()
		return nil, errors.NewStartError("failed to start service", err).
			WithContext("unit", id).
			WithContext("service", name).
			WithContext("state", string(state))
	}

	logger.Infof("Started service, unit: %s, service: %s", id, name)
	return h, nil
}

// Poll implements unit.Handle. Any state the manager does not consider alive counts as exited.
func (h *Handle) Poll() (unit.Status, error) {
	ctx, cancel := h.commandContext(context.Background())
	defer cancel()

	state, err := h.ctl.Query(ctx)
	if err != nil {
		return unit.Status{}, errors.NewPollError("failed to query service", err).
			WithContext("unit", h.id).
			WithContext("service", h.name)
	}

	if state.Alive() {
		return unit.Running, nil
	}

	return unit.Status{Exited: true, ExitCode: -1, Detail: "state: " + string(state)}, nil
}

// Stop requests a stop unless the service is already stopped, waits for the
// Stopped state at the poll period and releases the handle.
func (h *Handle) Stop(ctx context.Context) error {
	defer h.Release()

	state, err := h.query(ctx)
	if err != nil {
		return errors.NewStopError("failed to query service", err).WithContext("unit", h.id).WithContext("service", h.name)
	}
	if state == StateStopped {
		return nil
	}

	if state != StateStopPending {
		cmdCtx, cancel := h.commandContext(ctx)
		err := h.ctl.Stop(cmdCtx)
		cancel()
		if err != nil {
			return errors.NewStopError("failed to stop service", err).WithContext("unit", h.id).WithContext("service", h.name)
		}
	}

	ticker := time.NewTicker(h.options.PollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return errors.NewStopError("service did not reach stopped state", ctx.Err()).
				WithContext("unit", h.id).
				WithContext("service", h.name).
				WithContext("state", string(state))
		case <-ticker.C:
		}

		state, err = h.query(ctx)
		if err != nil {
			return errors.NewStopError("failed to query service", err).WithContext("unit", h.id).WithContext("service", h.name)
		}
		if state == StateStopped {
			h.logger.Infof("Service stopped, unit: %s, service: %s", h.id, h.name)
			return nil
		}
	}
}

// Release closes the manager references.
func (h *Handle) Release() {
	h.releaseOnce.Do(h.ctl.Close)
}

func (h *Handle) String() string {
	return fmt.Sprintf("service %s", h.name)
}

func (h *Handle) query(ctx context.Context) (State, error) {
	cmdCtx, cancel := h.commandContext(ctx)
	defer cancel()
	return h.ctl.Query(cmdCtx)
}

func (h *Handle) commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, h.options.CommandTimeout)
}

// QueryState reads the current state of a service by name without starting it.
func QueryState(ctx context.Context, name string) (State, error) {
	ctl, err := newController(name)
	if err != nil {
		return StateUnknown, err
	}
	defer ctl.Close()
	return ctl.Query(ctx)
}
