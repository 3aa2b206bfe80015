package observability

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealth serves the standard gRPC health protocol for orchestrators that probe over gRPC.
// Serving status follows the same dependency checks as /ready.
type GRPCHealth struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
	checks   map[string]HealthCheckFunc
}

// NewGRPCHealth binds the health service to addr
func NewGRPCHealth(addr string, checks map[string]HealthCheckFunc) (*GRPCHealth, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &GRPCHealth{
		server:   srv,
		health:   hs,
		listener: lis,
		checks:   checks,
	}, nil
}

// Addr returns the bound address
func (g *GRPCHealth) Addr() string {
	return g.listener.Addr().String()
}

// Serve runs the gRPC server and refreshes serving status every interval until ctx ends
func (g *GRPCHealth) Serve(ctx context.Context, interval time.Duration) error {
	logger := GetLogger().With().Str("component", "grpc_health").Logger()

	go func() {
		g.refresh(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				g.health.Shutdown()
				g.server.GracefulStop()
				return
			case <-ticker.C:
				g.refresh(ctx)
			}
		}
	}()

	logger.Info().Str("addr", g.Addr()).Msg("gRPC health service listening")
	if err := g.server.Serve(g.listener); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

func (g *GRPCHealth) refresh(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if _, ok := CheckDependencies(checkCtx, g.checks); !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(serviceName, status)
}
