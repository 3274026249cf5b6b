// ABOUTME: gRPC server construction with keepalive and request gate interceptors
// ABOUTME: Exposes the standard grpc.health.v1 service

package gateway

import (
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/2389/profile-service/internal/auth"
)

// createGRPCServer creates a gRPC server whose calls pass through the gate.
// The gate only attaches identities; the health service itself is public.
func createGRPCServer(gate *auth.Gate, logger *slog.Logger) (*grpc.Server, *health.Server) {
	server := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    15 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(gate.UnaryInterceptor()),
		grpc.ChainStreamInterceptor(gate.StreamInterceptor()),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	logger.Info("gRPC health service enabled with request gate interceptors")
	return server, healthServer
}
