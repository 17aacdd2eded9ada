package servicectl

import (
	"context"
	"time"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/logging"
	"github.com/core-tools/hsu-keeper/pkg/service"
)

const (
	DefaultName        = "hsu-keeper"
	DefaultDisplayName = "HSU Keeper"
	DefaultDescription = "Keeps configured processes and services running"
)

// InstallOptions describes how the keeper registers itself with the host.
type InstallOptions struct {
	DisplayName string
	Description string
	// Executable is the absolute path of the keeper binary.
	Executable string
	// Args are passed on every service start, e.g. runservice --config <path>.
	Args []string
}

// Options tunes manager requests.
type Options struct {
	// WaitTimeout bounds the wait for a requested state.
	WaitTimeout time.Duration
	// PollPeriod is the interval between state queries while waiting.
	PollPeriod time.Duration
}

func (o Options) withDefaults() Options {
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = 30 * time.Second
	}
	if o.PollPeriod <= 0 {
		o.PollPeriod = 250 * time.Millisecond
	}
	return o
}

// Manager controls the keeper's own host service registration.
type Manager struct {
	name    string
	options Options
	backend backend
	logger  logging.Logger
}

// backend is the platform binding to the host service manager.
type backend interface {
	install(ctx context.Context, name string, options InstallOptions) error
	uninstall(ctx context.Context, name string) error
	start(ctx context.Context, name string) error
	stop(ctx context.Context, name string) error
	pause(ctx context.Context, name string) error
	resume(ctx context.Context, name string) error
	query(ctx context.Context, name string) (service.State, error)
}

func NewManager(name string, options Options, logger logging.Logger) *Manager {
	if name == "" {
		name = DefaultName
	}
	return &Manager{
		name:    name,
		options: options.withDefaults(),
		backend: newBackend(),
		logger:  logging.WithPrefix(logger, "servicectl: "),
	}
}

func (m *Manager) Name() string {
	return m.name
}

// Install registers the keeper as an auto-start service and starts it.
func (m *Manager) Install(ctx context.Context, options InstallOptions) error {
	if options.Executable == "" {
		return errors.NewValidationError("executable path is required", nil)
	}
	if options.DisplayName == "" {
		options.DisplayName = DefaultDisplayName
	}
	if options.Description == "" {
		options.Description = DefaultDescription
	}

	if err := m.backend.install(ctx, m.name, options); err != nil {
		return errors.NewInternalError("failed to install service", err).WithContext("service", m.name)
	}
	m.logger.Infof("Installed %s: %s", m.name, options.Executable)

	return m.Start(ctx)
}

// Uninstall stops the service if needed and deletes it.
func (m *Manager) Uninstall(ctx context.Context) error {
	if err := m.Stop(ctx); err != nil {
		return err
	}
	if err := m.backend.uninstall(ctx, m.name); err != nil {
		return errors.NewInternalError("failed to uninstall service", err).WithContext("service", m.name)
	}
	m.logger.Infof("Uninstalled %s", m.name)
	return nil
}

func (m *Manager) Start(ctx context.Context) error {
	return m.transition(ctx, "start", service.StateRunning, m.backend.start)
}

func (m *Manager) Stop(ctx context.Context) error {
	return m.transition(ctx, "stop", service.StateStopped, m.backend.stop)
}

func (m *Manager) Pause(ctx context.Context) error {
	return m.transition(ctx, "pause", service.StatePaused, m.backend.pause)
}

func (m *Manager) Resume(ctx context.Context) error {
	return m.transition(ctx, "resume", service.StateRunning, m.backend.resume)
}

// Status returns the current service state.
func (m *Manager) Status(ctx context.Context) (service.State, error) {
	state, err := m.backend.query(ctx, m.name)
	if err != nil {
		return service.StateUnknown, errors.NewInternalError("failed to query service", err).WithContext("service", m.name)
	}
	return state, nil
}

// transition issues request unless the service is already in target, then waits for target.
func (m *Manager) transition(ctx context.Context, op string, target service.State, request func(context.Context, string) error) error {
	state, err := m.Status(ctx)
	if err != nil {
		return err
	}
	if state == target {
		m.logger.Infof("Service %s already %s", m.name, state)
		return nil
	}

	if err := request(ctx, m.name); err != nil {
		if errors.IsNotSupportedError(err) {
			return err
		}
		return errors.NewInternalError("failed to "+op+" service", err).
			WithContext("service", m.name).
			WithContext("state", string(state))
	}

	return m.waitFor(ctx, op, target)
}

func (m *Manager) waitFor(ctx context.Context, op string, target service.State) error {
	ctx, cancel := context.WithTimeout(ctx, m.options.WaitTimeout)
	defer cancel()

	ticker := time.NewTicker(m.options.PollPeriod)
	defer ticker.Stop()

	for {
		state, err := m.Status(ctx)
		if err == nil && state == target {
			m.logger.Infof("Service %s %s", m.name, state)
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.NewTimeoutError("service did not reach "+string(target)+" after "+op, ctx.Err()).
				WithContext("service", m.name).
				WithContext("state", string(state))
		case <-ticker.C:
		}
	}
}
