package control

import (
	"sync"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/core-tools/hsu-keeper/pkg/lifecycle"
	"github.com/core-tools/hsu-keeper/pkg/supervisor"
)

// KeeperService is the health entry that reflects the keeper itself.
const KeeperService = ""

// Health publishes keeper and unit state through the standard gRPC health service.
type Health struct {
	server *health.Server

	mu    sync.Mutex
	units map[string]healthpb.HealthCheckResponse_ServingStatus
}

func NewHealth() *Health {
	h := &Health{
		server: health.NewServer(),
		units:  make(map[string]healthpb.HealthCheckResponse_ServingStatus),
	}
	h.server.SetServingStatus(KeeperService, healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Server returns the health service to register on a gRPC server.
func (h *Health) Server() healthpb.HealthServer {
	return h.server
}

// Publish updates the keeper entry from state and one entry per unit.
func (h *Health) Publish(state lifecycle.State, units []supervisor.UnitStatus) {
	h.server.SetServingStatus(KeeperService, keeperStatus(state))

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, u := range units {
		status := unitStatus(u)
		if prev, ok := h.units[u.ID]; ok && prev == status {
			continue
		}
		h.units[u.ID] = status
		h.server.SetServingStatus(u.ID, status)
	}
}

func keeperStatus(state lifecycle.State) healthpb.HealthCheckResponse_ServingStatus {
	switch state {
	case lifecycle.Running, lifecycle.Paused:
		return healthpb.HealthCheckResponse_SERVING
	default:
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
}

func unitStatus(u supervisor.UnitStatus) healthpb.HealthCheckResponse_ServingStatus {
	if u.Live {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
