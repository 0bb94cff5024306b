package internalgrpc

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/moklem/tv-herren-bereich/internal/storage"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name the events service reports its health under.
const ServiceName = "events"

// DefaultCheckInterval replaces a non-positive WatchStorage interval.
const DefaultCheckInterval = 30 * time.Second

type Config struct {
	Host string
	Port int
}

type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	addr       string
}

func NewServer(config Config) *Server {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{health: h, addr: net.JoinHostPort(config.Host, strconv.Itoa(config.Port))}
}

// Health is shared with the HTTP /health endpoint.
func (s *Server) Health() *health.Server {
	return s.health
}

func (s *Server) Start(_ context.Context) error {
	s.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(loggingHandler))
	healthpb.RegisterHealthServer(s.grpcServer, s.health)

	lsn, err := net.Listen("tcp", s.addr)
	if err != nil {
		log.Errorf("failed to listen grpc endpoint: %v", err)
		return err
	}

	log.Printf("starting grpc server on %s", s.addr)
	return s.grpcServer.Serve(lsn)
}

func (s *Server) Stop(_ context.Context) error {
	s.health.Shutdown()
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	return nil
}

// CheckStorage sets the serving status from one storage round trip. A missing
// event is a successful answer.
func (s *Server) CheckStorage(ctx context.Context, st storage.Storage) {
	_, err := st.GetEvent(ctx, "__health__")
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil && !errors.Is(err, storage.ErrNotFoundEvent) {
		log.Warnf("storage is not reachable: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// WatchStorage checks st every interval until ctx is done.
func (s *Server) WatchStorage(ctx context.Context, st storage.Storage, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	s.CheckStorage(ctx, st)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckStorage(ctx, st)
		}
	}
}
