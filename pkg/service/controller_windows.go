//go:build windows

package service

import (
	"context"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// scmController talks to the Windows Service Control Manager.
type scmController struct {
	m *mgr.Mgr
	s *mgr.Service
}

func newController(name string) (controller, error) {
	m, err := mgr.Connect()
	if err != nil {
		return nil, err
	}
	s, err := m.OpenService(name)
	if err != nil {
		m.Disconnect()
		return nil, err
	}
	return &scmController{m: m, s: s}, nil
}

func (c *scmController) Query(ctx context.Context) (State, error) {
	status, err := c.s.Query()
	if err != nil {
		return StateUnknown, err
	}
	return fromSvcState(status.State), nil
}

func (c *scmController) Start(ctx context.Context) error {
	return c.s.Start()
}

func (c *scmController) Stop(ctx context.Context) error {
	_, err := c.s.Control(svc.Stop)
	return err
}

func (c *scmController) Close() {
	c.s.Close()
	c.m.Disconnect()
}

func fromSvcState(state svc.State) State {
	switch state {
	case svc.Stopped:
		return StateStopped
	case svc.StartPending:
		return StateStartPending
	case svc.StopPending:
		return StateStopPending
	case svc.Running:
		return StateRunning
	case svc.ContinuePending:
		return StateContinuePending
	case svc.PausePending:
		return StatePausePending
	case svc.Paused:
		return StatePaused
	default:
		return StateUnknown
	}
}
