package launcher

import (
	"context"
	"fmt"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/logcollection"
	"github.com/core-tools/hsu-keeper/pkg/logging"
	"github.com/core-tools/hsu-keeper/pkg/process"
	"github.com/core-tools/hsu-keeper/pkg/processfile"
	"github.com/core-tools/hsu-keeper/pkg/service"
	"github.com/core-tools/hsu-keeper/pkg/unit"
)

// Options wires the OS collaborators shared by every launched handle.
type Options struct {
	Collector logcollection.LogCollector
	PIDFiles  *processfile.ProcessFileManager
	Service   service.Options
}

// OSLauncher starts real processes and host services, dispatching on the unit kind.
type OSLauncher struct {
	options Options
	logger  logging.Logger
}

var _ unit.Launcher = (*OSLauncher)(nil)

func NewOSLauncher(options Options, logger logging.Logger) *OSLauncher {
	return &OSLauncher{
		options: options,
		logger:  logger,
	}
}

// Launch implements unit.Launcher.
func (l *OSLauncher) Launch(ctx context.Context, descriptor unit.Descriptor) (unit.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelledError("launch cancelled", err).WithContext("unit", descriptor.ID)
	}

	switch descriptor.Kind {
	case unit.KindProcess:
		if descriptor.Process == nil {
			return nil, errors.NewStartError("missing process spec", nil).WithContext("unit", descriptor.ID)
		}
		h, err := process.Spawn(descriptor.ID, *descriptor.Process, process.SpawnOptions{
			Collector: l.options.Collector,
			PIDFiles:  l.options.PIDFiles,
		}, l.logger)
		if err != nil {
			return nil, err
		}
		return h, nil

	case unit.KindService:
		if descriptor.Service == nil {
			return nil, errors.NewStartError("missing service spec", nil).WithContext("unit", descriptor.ID)
		}
		h, err := service.Open(descriptor.ID, *descriptor.Service, l.options.Service, l.logger)
		if err != nil {
			return nil, err
		}
		return h, nil

	default:
		return nil, errors.NewStartError(fmt.Sprintf("unsupported unit kind: %s", descriptor.Kind), nil).
			WithContext("unit", descriptor.ID)
	}
}
