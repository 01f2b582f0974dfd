package main

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const healthInterval = 10 * time.Second

type dependencyCheck struct {
	name string
	ping func(ctx context.Context) error
}

// watchDependencies flips the overall gRPC health status to NOT_SERVING while
// any backing store fails its ping.
func watchDependencies(ctx context.Context, hs *health.Server, log *slog.Logger, checks ...dependencyCheck) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_SERVING
	for {
		status := healthpb.HealthCheckResponse_SERVING
		for _, c := range checks {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := c.ping(pingCtx)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.WarnContext(ctx, "dependency unhealthy", "dependency", c.name, "error", err)
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
		}
		if status != last {
			log.InfoContext(ctx, "health status changed", "status", status.String())
			last = status
		}
		hs.SetServingStatus("", status)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
