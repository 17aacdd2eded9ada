package process

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/logcollection"
	"github.com/core-tools/hsu-keeper/pkg/logging"
	"github.com/core-tools/hsu-keeper/pkg/processfile"
	"github.com/core-tools/hsu-keeper/pkg/unit"
)

// SpawnOptions carries the optional collaborators of a spawned process.
type SpawnOptions struct {
	// Collector drains stdout/stderr. When nil, output is discarded.
	Collector logcollection.LogCollector
	// PIDFiles records the PID while the process lives. Optional.
	PIDFiles *processfile.ProcessFileManager
}

// Handle is one spawned process. Poll never blocks: a reaper goroutine waits for
// the process and closes done once its exit status is known.
type Handle struct {
	id      string
	program string
	process *os.Process
	options SpawnOptions
	logger  logging.Logger
	started time.Time

	done    chan struct{}
	state   *os.ProcessState
	waitErr error
}

var _ unit.Handle = (*Handle)(nil)

// Spawn starts the program of spec and returns its handle.
func Spawn(id string, spec unit.ProcessSpec, options SpawnOptions, logger logging.Logger) (*Handle, error) {
	if err := ValidateProcessSpec(spec); err != nil {
		return nil, errors.NewStartError("invalid process spec", err).WithContext("unit", id)
	}

	program, workDir, err := resolveLaunchPaths(spec)
	if err != nil {
		return nil, errors.NewStartError("failed to resolve program path", err).WithContext("unit", id)
	}

	logger.Debugf("Spawning process, unit: %s, program: '%s', args: %v, working directory: '%s'",
		id, program, spec.Args, workDir)

	cmd := exec.Command(program, spec.Args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), spec.Environment...)

	// Platform-specific setup is handled in execute_windows.go or execute_unix.go
	setupProcessAttributes(cmd)

	var stdout, stderr io.ReadCloser
	if options.Collector != nil {
		if stdout, err = cmd.StdoutPipe(); err != nil {
			return nil, errors.NewStartError("failed to create stdout pipe", err).WithContext("unit", id)
		}
		if stderr, err = cmd.StderrPipe(); err != nil {
			return nil, errors.NewStartError("failed to create stderr pipe", err).WithContext("unit", id)
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.NewStartError("failed to start the process", err).
			WithContext("unit", id).
			WithContext("program", program)
	}

	h := &Handle{
		id:      id,
		program: program,
		process: cmd.Process,
		options: options,
		logger:  logger,
		started: time.Now(),
		done:    make(chan struct{}),
	}

	if options.Collector != nil {
		options.Collector.ProcessStarted(id, h.process.Pid)
		if err := options.Collector.CollectFromProcess(id, stdout, stderr); err != nil {
			logger.Warnf("Output collection unavailable, unit: %s, error: %v", id, err)
			go drain(stdout)
			go drain(stderr)
		}
	}

	if options.PIDFiles != nil {
		if err := options.PIDFiles.WritePIDFile(id, h.process.Pid); err != nil {
			logger.Warnf("Failed to write PID file, unit: %s, error: %v", id, err)
		}
	}

	go h.reap()

	logger.Infof("Spawned process, unit: %s, PID: %d", id, h.process.Pid)

	return h, nil
}

func (h *Handle) reap() {
	h.state, h.waitErr = h.process.Wait()
	if h.options.PIDFiles != nil {
		_ = h.options.PIDFiles.RemovePIDFile(h.id)
	}
	if h.options.Collector != nil {
		exitCode := -1
		if h.state != nil {
			exitCode = h.state.ExitCode()
		}
		h.options.Collector.ProcessExited(h.id, h.process.Pid, exitCode, time.Since(h.started))
	}
	close(h.done)
}

// PID returns the process ID.
func (h *Handle) PID() int {
	return h.process.Pid
}

// Done is closed once the process exit has been observed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Poll implements unit.Handle.
func (h *Handle) Poll() (unit.Status, error) {
	select {
	case <-h.done:
	default:
		return unit.Running, nil
	}

	if h.waitErr != nil {
		return unit.Status{}, errors.NewPollError("failed to wait for process", h.waitErr).
			WithContext("unit", h.id).
			WithContext("pid", h.process.Pid)
	}

	return unit.Status{
		Exited:   true,
		ExitCode: h.state.ExitCode(),
		Detail:   h.state.String(),
	}, nil
}

// Stop kills the process tree and waits until the reaper has observed the exit.
func (h *Handle) Stop(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	default:
	}

	h.logger.Debugf("Killing process, unit: %s, PID: %d", h.id, h.process.Pid)

	if err := killProcessTree(h.process); err != nil {
		select {
		case <-h.done:
			return nil
		default:
		}
		return errors.NewStopError("failed to kill process", err).
			WithContext("unit", h.id).
			WithContext("pid", h.process.Pid)
	}

	select {
	case <-h.done:
		h.logger.Infof("Process stopped, unit: %s, PID: %d", h.id, h.process.Pid)
		return nil
	case <-ctx.Done():
		return errors.NewStopError("process exit not observed", ctx.Err()).
			WithContext("unit", h.id).
			WithContext("pid", h.process.Pid)
	}
}

// Release is a no-op: the reaper's Wait frees the OS process handle.
func (h *Handle) Release() {}

func (h *Handle) String() string {
	return fmt.Sprintf("process %s (pid %d)", h.program, h.process.Pid)
}

func drain(r io.ReadCloser) {
	if r == nil {
		return
	}
	_, _ = io.Copy(io.Discard, r)
	_ = r.Close()
}
