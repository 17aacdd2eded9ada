package keeper

import (
	"bytes"
	"os/exec"
	"strings"
	"sync"

	"github.com/core-tools/hsu-keeper/pkg/config"
	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/logging"
)

// stopHooks runs auxiliary commands when a stop is requested, e.g. `nginx -s stop`.
// Failures are collected for the final shutdown log and never block the stop.
type stopHooks struct {
	hooks  []config.HookConfig
	logger logging.Logger

	mu     sync.Mutex
	errors *errors.ErrorCollection
}

func newStopHooks(hooks []config.HookConfig, logger logging.Logger) *stopHooks {
	return &stopHooks{
		hooks:  hooks,
		logger: logging.WithPrefix(logger, "hooks: "),
		errors: errors.NewErrorCollection(),
	}
}

// funcs returns one function per hook, each running its command to completion.
func (s *stopHooks) funcs() []func() {
	funcs := make([]func(), 0, len(s.hooks))
	for _, hook := range s.hooks {
		hook := hook
		funcs = append(funcs, func() { s.run(hook) })
	}
	return funcs
}

func (s *stopHooks) run(hook config.HookConfig) {
	command := strings.TrimSpace(hook.Program + " " + strings.Join(hook.Args, " "))
	s.logger.Infof("Running stop hook: %s", command)

	cmd := exec.Command(hook.Program, hook.Args...)
	cmd.Dir = hook.Dir
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		s.logger.Warnf("Stop hook failed: %s: %v: %s", command, err, strings.TrimSpace(output.String()))
		s.mu.Lock()
		s.errors.Add(errors.NewStopError("stop hook failed", err).WithContext("command", command))
		s.mu.Unlock()
		return
	}
	s.logger.Infof("Stop hook done: %s", command)
}

// err returns the failures collected so far.
func (s *stopHooks) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors.ToError()
}
