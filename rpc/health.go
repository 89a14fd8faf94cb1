package rpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/wfunc/boardserver/logger"
)

// HealthService is the service name reported next to the overall ("") status.
const HealthService = "boardserver"

// HealthServer serves the standard grpc.health.v1 protocol for orchestrators.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
}

// NewHealthServer starts out NOT_SERVING.
func NewHealthServer() *HealthServer {
	h := &HealthServer{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(h.grpc, h.health)
	h.SetServing(false)
	return h
}

func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(HealthService, status)
}

// Follow polls ready every interval and mirrors it into the serving status.
// Once ctx is done the status drops to NOT_SERVING.
func (h *HealthServer) Follow(ctx context.Context, ready func() bool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	serving := ready()
	h.SetServing(serving)
	for {
		select {
		case <-ctx.Done():
			h.SetServing(false)
			return
		case <-ticker.C:
			if now := ready(); now != serving {
				serving = now
				h.SetServing(serving)
			}
		}
	}
}

// Serve blocks until Stop.
func (h *HealthServer) Serve(lis net.Listener) error {
	logger.Log.Infof("gRPC health server listening on %s", lis.Addr())
	return h.grpc.Serve(lis)
}

// Stop reports NOT_SERVING to watchers and shuts the server down.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
