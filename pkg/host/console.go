package host

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/core-tools/hsu-keeper/pkg/lifecycle"
	"github.com/core-tools/hsu-keeper/pkg/logging"
)

// Console is the host used when the keeper runs in a terminal or under an init
// system: OS signals become control events and status reports go to the log.
type Console struct {
	signals chan os.Signal
	logger  logging.Logger
}

func NewConsole(logger logging.Logger) *Console {
	return &Console{
		signals: make(chan os.Signal, eventBuffer),
		logger:  logging.WithPrefix(logger, "console: "),
	}
}

// Run forwards signals to run until it returns.
func (c *Console) Run(run RunFunc) error {
	if runtime.GOOS == "windows" {
		signal.Notify(c.signals) // Unix signals not implemented on Windows
	} else {
		signal.Notify(c.signals, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	}
	defer signal.Stop(c.signals)

	events := make(chan lifecycle.Event, eventBuffer)
	quit := make(chan struct{})
	defer close(quit)

	go c.forward(c.signals, events, quit)

	return run(events, lifecycle.ReporterFunc(c.Report))
}

func (c *Console) forward(signals <-chan os.Signal, events chan<- lifecycle.Event, quit <-chan struct{}) {
	for {
		select {
		case <-quit:
			return
		case sig := <-signals:
			event, ok := eventForSignal(sig)
			if !ok {
				c.logger.Debugf("Ignoring signal %v", sig)
				continue
			}
			c.logger.Infof("Received signal %v, sending %s", sig, event)
			select {
			case events <- event:
			case <-quit:
				return
			}
		}
	}
}

func eventForSignal(sig os.Signal) (lifecycle.Event, bool) {
	switch sig {
	case os.Interrupt, syscall.SIGTERM:
		return lifecycle.Stop, true
	case syscall.SIGHUP:
		return lifecycle.Interrogate, true
	default:
		return 0, false
	}
}

// Report logs the status the way a service manager would record it.
func (c *Console) Report(status lifecycle.StatusReport) error {
	if status.State == lifecycle.StopPending {
		c.logger.Infof("Status %s, checkpoint %d, wait hint %v", status.State, status.Checkpoint, status.WaitHint)
		return nil
	}
	c.logger.Infof("Status %s", status.State)
	return nil
}
