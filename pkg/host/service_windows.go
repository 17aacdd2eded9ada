//go:build windows

package host

import (
	"golang.org/x/sys/windows/svc"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/lifecycle"
	"github.com/core-tools/hsu-keeper/pkg/logging"
)

// IsService reports whether the process was started by the service control manager.
func IsService() (bool, error) {
	return svc.IsWindowsService()
}

// RunService hands the calling goroutine to the service control dispatcher and
// returns once the service has stopped.
func RunService(name string, run RunFunc, logger logging.Logger) error {
	handler := &serviceHandler{
		run:    run,
		logger: logging.WithPrefix(logger, "scm: "),
	}
	if err := svc.Run(name, handler); err != nil {
		return errors.NewInternalError("service dispatcher failed", err).WithContext("service", name)
	}
	return handler.err
}

type serviceHandler struct {
	run    RunFunc
	logger logging.Logger
	err    error
}

func (h *serviceHandler) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	events := make(chan lifecycle.Event, eventBuffer)
	quit := make(chan struct{})
	defer close(quit)

	go h.forward(r, events, quit)

	reporter := lifecycle.ReporterFunc(func(status lifecycle.StatusReport) error {
		changes <- toSvcStatus(status)
		return nil
	})

	if err := h.run(events, reporter); err != nil {
		h.logger.Errorf("Keeper failed: %v", err)
		h.err = err
		return true, 1
	}
	return false, 0
}

func (h *serviceHandler) forward(r <-chan svc.ChangeRequest, events chan<- lifecycle.Event, quit <-chan struct{}) {
	for {
		select {
		case <-quit:
			return
		case req, ok := <-r:
			if !ok {
				close(events)
				return
			}
			event, known := fromSvcCommand(req.Cmd)
			if !known {
				h.logger.Warnf("Unexpected control request #%d", req.Cmd)
				continue
			}
			select {
			case events <- event:
			case <-quit:
				return
			}
		}
	}
}

func fromSvcCommand(cmd svc.Cmd) (lifecycle.Event, bool) {
	switch cmd {
	case svc.Interrogate:
		return lifecycle.Interrogate, true
	case svc.Stop, svc.Shutdown:
		return lifecycle.Stop, true
	case svc.Pause:
		return lifecycle.Pause, true
	case svc.Continue:
		return lifecycle.Continue, true
	default:
		return 0, false
	}
}

func toSvcStatus(status lifecycle.StatusReport) svc.Status {
	s := svc.Status{
		CheckPoint: status.Checkpoint,
		WaitHint:   uint32(status.WaitHint.Milliseconds()),
	}

	switch status.State {
	case lifecycle.Running:
		s.State = svc.Running
	case lifecycle.Paused:
		s.State = svc.Paused
	case lifecycle.StopPending:
		s.State = svc.StopPending
	case lifecycle.Stopped:
		s.State = svc.Stopped
	}

	if status.Accepts.Has(lifecycle.AcceptStop) {
		s.Accepts |= svc.AcceptStop
	}
	if status.Accepts.Has(lifecycle.AcceptShutdown) {
		s.Accepts |= svc.AcceptShutdown
	}
	if status.Accepts.Has(lifecycle.AcceptPauseContinue) {
		s.Accepts |= svc.AcceptPauseAndContinue
	}
	return s
}
