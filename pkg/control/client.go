package control

import (
	"context"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/core-tools/hsu-keeper/pkg/logging"
)

// NewGRPCClientGateway returns a status client over an existing connection.
func NewGRPCClientGateway(grpcClientConnection grpc.ClientConnInterface, logger logging.Logger) *ClientGateway {
	return &ClientGateway{
		grpcClient: healthpb.NewHealthClient(grpcClientConnection),
		logger:     logger,
	}
}

type ClientGateway struct {
	grpcClient healthpb.HealthClient
	logger     logging.Logger
}

// Status returns the serving status of the keeper, or of one unit when unitID is set.
func (gw *ClientGateway) Status(ctx context.Context, unitID string) (string, error) {
	response, err := gw.grpcClient.Check(ctx, &healthpb.HealthCheckRequest{Service: unitID})
	if err != nil {
		gw.logger.Errorf("Status client gateway: %v", err)
		return "", err
	}
	gw.logger.Debugf("Status client gateway done")
	return response.Status.String(), nil
}
