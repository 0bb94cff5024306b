package internalgrpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moklem/tv-herren-bereich/internal/storage"
	memorystorage "github.com/moklem/tv-herren-bereich/internal/storage/memory"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type brokenStorage struct {
	storage.Storage
}

func (brokenStorage) GetEvent(context.Context, string) (storage.Event, error) {
	return storage.Event{}, errors.New("connection refused")
}

func TestCheckStorage(t *testing.T) {
	ctx := context.Background()
	s := NewServer(Config{Host: "127.0.0.1", Port: 0})

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := s.Health().Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
		require.NoError(t, err)
		return resp.GetStatus()
	}
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check())

	s.CheckStorage(ctx, memorystorage.New())
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check())

	s.CheckStorage(ctx, brokenStorage{})
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check())
}

func TestWatchStorageWithoutInterval(t *testing.T) {
	s := NewServer(Config{Host: "127.0.0.1", Port: 0})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.WatchStorage(ctx, memorystorage.New(), 0)
	}()

	require.Eventually(t, func() bool {
		resp, err := s.Health().Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
