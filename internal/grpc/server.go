package grpcserver

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"foodDeliveryMarketplace/internal/auth"
)

const (
	healthCheckMethod = "/grpc.health.v1.Health/Check"
	healthWatchMethod = "/grpc.health.v1.Health/Watch"

	// ServiceName is the health service name that tracks the order store.
	ServiceName = "foodDeliveryMarketplace.orders"
)

var reflectionMethods = map[string]struct{}{
	"/grpc.reflection.v1.ServerReflection/ServerReflectionInfo":      {},
	"/grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo": {},
}

// Server is the operational gRPC port: standard health checks for load balancers and
// reflection for super admins.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	lis    net.Listener
	log    *logrus.Entry
}

// Start listens on addr and serves in the background. Health checks need no token;
// everything else requires a valid JWT.
func Start(addr, jwtSecret string, log *logrus.Entry) (*Server, error) {
	if addr == "" {
		addr = ":50051"
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(auth.NewUnaryAuthInterceptor(jwtSecret, healthCheckMethod)),
		grpc.ChainStreamInterceptor(
			auth.NewStreamAuthInterceptor(jwtSecret, healthWatchMethod),
			reflectionGuard,
		),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	s := &Server{srv: srv, health: hs, lis: lis, log: log}
	go func() {
		if err := srv.Serve(lis); err != nil {
			log.WithError(err).Error("grpc server stopped")
		}
	}()
	log.WithField("addr", lis.Addr().String()).Info("grpc ops server listening")
	return s, nil
}

// reflectionGuard limits server reflection to super admins.
func reflectionGuard(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if _, ok := reflectionMethods[info.FullMethod]; ok {
		if _, err := auth.RequireSuperAdmin(ss.Context()); err != nil {
			return err
		}
	}
	return handler(srv, ss)
}

// Addr returns the bound listen address.
func (s *Server) Addr() string { return s.lis.Addr().String() }

// SetServing flips the order service health status.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
}

// WatchStore pings the store every interval and mirrors the result in the health
// status until ctx is done. It blocks.
func (s *Server) WatchStore(ctx context.Context, ping func(context.Context) error, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := ping(pctx)
			cancel()
			if ok := err == nil; ok != healthy {
				healthy = ok
				s.SetServing(ok)
				s.log.WithError(err).WithField("serving", ok).Warn("store health changed")
			}
		}
	}
}

// Shutdown marks every service NOT_SERVING and stops gracefully, forcing a stop
// when ctx expires first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() { s.srv.GracefulStop(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.srv.Stop()
		return ctx.Err()
	}
}
