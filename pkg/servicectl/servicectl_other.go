//go:build !windows && !linux

package servicectl

import (
	"context"
	"runtime"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/service"
)

type unsupportedBackend struct{}

func newBackend() backend {
	return unsupportedBackend{}
}

func notSupported(name string) error {
	return errors.NewNotSupportedError("service installation is not supported on "+runtime.GOOS, nil).
		WithContext("service", name)
}

func (unsupportedBackend) install(ctx context.Context, name string, options InstallOptions) error {
	return notSupported(name)
}

func (unsupportedBackend) uninstall(ctx context.Context, name string) error {
	return notSupported(name)
}

func (unsupportedBackend) start(ctx context.Context, name string) error {
	return notSupported(name)
}

func (unsupportedBackend) stop(ctx context.Context, name string) error {
	return notSupported(name)
}

func (unsupportedBackend) pause(ctx context.Context, name string) error {
	return notSupported(name)
}

func (unsupportedBackend) resume(ctx context.Context, name string) error {
	return notSupported(name)
}

func (unsupportedBackend) query(ctx context.Context, name string) (service.State, error) {
	return service.StateUnknown, notSupported(name)
}
