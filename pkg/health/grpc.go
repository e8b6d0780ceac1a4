package health

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// DefaultGRPCUpdateInterval is how often readiness is pushed to the gRPC health server.
const DefaultGRPCUpdateInterval = 5 * time.Second

// GRPCUpdater mirrors readiness into a grpc.health.v1 server.
type GRPCUpdater struct {
	checker  *HealthChecker
	server   *health.Server
	interval time.Duration
}

// RegisterWithGRPC registers the health service on srv under the empty service
// name. The status stays NOT_SERVING until Run performs its first check.
func (h *HealthChecker) RegisterWithGRPC(srv *grpc.Server, interval time.Duration) *GRPCUpdater {
	if interval <= 0 {
		interval = DefaultGRPCUpdateInterval
	}
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	return &GRPCUpdater{checker: h, server: hs, interval: interval}
}

// Run refreshes the serving status until ctx is cancelled, then marks the
// service NOT_SERVING.
func (u *GRPCUpdater) Run(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	u.refresh(ctx)
	for {
		select {
		case <-ticker.C:
			u.refresh(ctx)
		case <-ctx.Done():
			u.server.Shutdown()
			return
		}
	}
}

func (u *GRPCUpdater) refresh(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, u.interval)
	defer cancel()

	if _, err := u.checker.CheckReadiness(ctx); err != nil {
		u.server.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		return
	}
	u.server.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
}
