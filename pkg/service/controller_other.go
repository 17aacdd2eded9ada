//go:build !windows && !linux

package service

import (
	"runtime"

	"github.com/core-tools/hsu-keeper/pkg/errors"
)

func newController(name string) (controller, error) {
	return nil, errors.NewNotSupportedError("service units are not supported on "+runtime.GOOS, nil).
		WithContext("service", name)
}
