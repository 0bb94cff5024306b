package internalhttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/moklem/tv-herren-bereich/internal/app"
	log "github.com/sirupsen/logrus"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Config struct {
	Host string
	Port int
}

// HealthChecker is satisfied by the grpc health server.
type HealthChecker interface {
	Check(ctx context.Context, r *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error)
}

type Server struct {
	srv    *http.Server
	addr   string
	app    *app.App
	health HealthChecker
	now    func() time.Time
}

func NewServer(config Config, app *app.App, health HealthChecker) *Server {
	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	return &Server{
		addr:   addr,
		srv:    &http.Server{Addr: addr, ReadHeaderTimeout: 10 * time.Second},
		app:    app,
		health: health,
		now:    time.Now,
	}
}

// Handler returns the API routes on mux, or on a new mux when mux is nil.
func (s *Server) Handler(mux *runtime.ServeMux) (http.Handler, error) {
	if mux == nil {
		mux = runtime.NewServeMux()
	}
	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodPost, "/events", s.createEvents},
		{http.MethodPost, "/events/schedule", s.createFromSchedule},
		{http.MethodPost, "/events/trainings", s.createTrainings},
		{http.MethodGet, "/events", s.listEvents},
		{http.MethodGet, "/events.ics", s.exportCalendar},
		{http.MethodGet, "/events/{id}", s.getEvent},
		{http.MethodPost, "/events/{id}/responses", s.recordResponse},
		{http.MethodPost, "/events/{id}/auto-decline", s.runAutoDecline},
		{http.MethodGet, "/health", s.checkHealth},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.pattern, r.handler); err != nil {
			return nil, fmt.Errorf("failed to register %s %s: %w", r.method, r.pattern, err)
		}
	}
	return loggingMiddleware(mux), nil
}

func (s *Server) Start(_ context.Context, mux *runtime.ServeMux) error {
	handler, err := s.Handler(mux)
	if err != nil {
		return err
	}
	s.srv.Handler = handler

	log.Printf("starting http server on %s", s.addr)
	err = s.srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func getIP(req *http.Request) (string, error) {
	ip, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return "", fmt.Errorf("userip: %q is not IP:port", req.RemoteAddr)
	}

	if parsed := net.ParseIP(ip); parsed == nil {
		return "", fmt.Errorf("userip: %q is not IP:port", req.RemoteAddr)
	}
	return ip, nil
}
