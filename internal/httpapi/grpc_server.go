package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"orgcms.dev/cms/internal/obs"
)

// HealthServer exposes the standard gRPC health service, driven by the
// same readiness probe as /readyz.
type HealthServer struct {
	*health.Server
	readiness ReadinessChecker
}

// NewHealthServer returns a server reporting NOT_SERVING until the first Refresh.
func NewHealthServer(r ReadinessChecker) *HealthServer {
	if r == nil {
		r = ReadyFunc(nil)
	}
	s := &HealthServer{Server: health.NewServer(), readiness: r}
	s.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Register attaches the health service to srv.
func (s *HealthServer) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, s.Server)
}

// Refresh runs the readiness probe once and publishes the result.
func (s *HealthServer) Refresh(ctx context.Context) error {
	status := healthpb.HealthCheckResponse_SERVING
	err := s.readiness.Check(ctx)
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	obs.SetReady(err == nil)
	s.SetServingStatus("", status)
	s.SetServingStatus(serviceName, status)
	return err
}

// Run refreshes every interval until ctx is done, then marks the service down.
func (s *HealthServer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		if err := s.Refresh(probeCtx); err != nil && ctx.Err() == nil {
			obs.Logger().WithError(err).Warn("readiness probe failed")
		}
		cancel()
		select {
		case <-ctx.Done():
			s.Shutdown()
			return
		case <-ticker.C:
		}
	}
}
