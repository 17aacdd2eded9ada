//go:build windows

package servicectl

import (
	"context"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"

	"github.com/core-tools/hsu-keeper/pkg/service"
)

type scmBackend struct{}

func newBackend() backend {
	return scmBackend{}
}

func withService(name string, fn func(s *mgr.Service) error) error {
	m, err := mgr.Connect()
	if err != nil {
		return err
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

func (scmBackend) install(ctx context.Context, name string, options InstallOptions) error {
	m, err := mgr.Connect()
	if err != nil {
		return err
	}
	defer m.Disconnect()

	s, err := m.CreateService(name, options.Executable, mgr.Config{
		DisplayName:  options.DisplayName,
		Description:  options.Description,
		StartType:    mgr.StartAutomatic,
		ErrorControl: mgr.ErrorNormal,
	}, options.Args...)
	if err != nil {
		return err
	}
	s.Close()
	return nil
}

func (scmBackend) uninstall(ctx context.Context, name string) error {
	return withService(name, func(s *mgr.Service) error {
		return s.Delete()
	})
}

func (scmBackend) start(ctx context.Context, name string) error {
	return withService(name, func(s *mgr.Service) error {
		return s.Start()
	})
}

func (scmBackend) stop(ctx context.Context, name string) error {
	return control(name, svc.Stop)
}

func (scmBackend) pause(ctx context.Context, name string) error {
	return control(name, svc.Pause)
}

func (scmBackend) resume(ctx context.Context, name string) error {
	return control(name, svc.Continue)
}

func control(name string, cmd svc.Cmd) error {
	return withService(name, func(s *mgr.Service) error {
		_, err := s.Control(cmd)
		return err
	})
}

func (scmBackend) query(ctx context.Context, name string) (service.State, error) {
	return service.QueryState(ctx, name)
}
