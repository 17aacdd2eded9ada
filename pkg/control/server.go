package control

import (
	"context"
	"time"

	corecontrol "github.com/core-tools/hsu-core/pkg/control"
	coredomain "github.com/core-tools/hsu-core/pkg/domain"
	corelogging "github.com/core-tools/hsu-core/pkg/logging"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/lifecycle"
	"github.com/core-tools/hsu-keeper/pkg/logging"
	"github.com/core-tools/hsu-keeper/pkg/supervisor"
)

// StateSource reports the keeper state.
type StateSource interface {
	State() lifecycle.State
}

// StatusSource reports every unit.
type StatusSource interface {
	Statuses() []supervisor.UnitStatus
}

type ServerOptions struct {
	Port          int
	PublishPeriod time.Duration
}

// Server is the optional status endpoint: the hsu-core gRPC server with the
// core ping handler and the health service.
type Server struct {
	options ServerOptions
	server  corecontrol.Server
	health  *Health
	logger  logging.Logger
}

func NewServer(options ServerOptions, coreLogger corelogging.Logger, logger logging.Logger) (*Server, error) {
	if options.PublishPeriod <= 0 {
		options.PublishPeriod = time.Second
	}

	server, err := corecontrol.NewServer(corecontrol.ServerOptions{Port: options.Port}, coreLogger)
	if err != nil {
		return nil, errors.NewInternalError("failed to create server", err).WithContext("port", options.Port)
	}

	coreHandler := coredomain.NewDefaultHandler(coreLogger)
	corecontrol.RegisterGRPCServerHandler(server.GRPC(), coreHandler, coreLogger)

	health := NewHealth()
	healthpb.RegisterHealthServer(server.GRPC(), health.Server())

	return &Server{
		options: options,
		server:  server,
		health:  health,
		logger:  logging.WithPrefix(logger, "control: "),
	}, nil
}

// Start serves and publishes state until ctx is done.
func (s *Server) Start(ctx context.Context, state StateSource, units StatusSource) {
	s.server.Start(ctx)
	s.logger.Infof("Status endpoint listening on port %d", s.options.Port)

	go func() {
		ticker := time.NewTicker(s.options.PublishPeriod)
		defer ticker.Stop()
		for {
			s.health.Publish(state.State(), units.Statuses())
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) {
	s.health.server.Shutdown()
	s.server.Shutdown(ctx)
	s.logger.Infof("Status endpoint stopped")
}
