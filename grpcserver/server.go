package grpcserver

import (
	"context"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server exposes grpc.health.v1 for the whole process and for serviceName.
// The status follows a periodic database ping.
type Server struct {
	server      *grpc.Server
	health      *health.Server
	db          Pinger
	serviceName string
	interval    time.Duration
	logger      *zap.Logger
}

func New(serviceName string, db Pinger, interval time.Duration, logger *zap.Logger) *Server {
	s := &Server{
		server: grpc.NewServer(
			grpc.StatsHandler(otelgrpc.NewServerHandler()),
		),
		health:      health.NewServer(),
		db:          db,
		serviceName: serviceName,
		interval:    interval,
		logger:      logger,
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// Watch pings the database every interval until ctx is done.
func (s *Server) Watch(ctx context.Context) {
	s.check(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

func (s *Server) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	if err := s.db.PingContext(pingCtx); err != nil {
		s.logger.Warn("Database ping failed, reporting NOT_SERVING", zap.Error(err))
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.serviceName, status)
}
