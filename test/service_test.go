//go:build integration
// +build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/jmoiron/sqlx"
	"github.com/moklem/tv-herren-bereich/internal/app"
	"github.com/moklem/tv-herren-bereich/internal/deadline"
	"github.com/moklem/tv-herren-bereich/internal/logger"
	internalgrpc "github.com/moklem/tv-herren-bereich/internal/server/grpc"
	internalhttp "github.com/moklem/tv-herren-bereich/internal/server/http"
	"github.com/moklem/tv-herren-bereich/internal/storage"
	sqlstorage "github.com/moklem/tv-herren-bereich/internal/storage/sql"
	"github.com/moklem/tv-herren-bereich/internal/storagebuilder"
	"github.com/moklem/tv-herren-bereich/internal/zone"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var (
	httpServerHost = "127.0.0.1"
	httpServerPort = 9005
	grpcServerHost = "127.0.0.1"
	grpcServerPort = 9006
	pgHost         = "127.0.0.1"
	pgPort         = 5432
	pgDatabase     = "testing"
	pgUsername     = "postgres"
	pgPassword     = "pas"
	storageType    = "memory"
	httpServerURL  = ""
)

func TestMain(m *testing.M) {
	logger.PrepareLogger(logger.Config{Level: "ERROR"})

	port := os.Getenv("TEST_HTTP_SERVER_PORT")
	if port != "" {
		httpServerPort, _ = strconv.Atoi(port)
	}
	port = os.Getenv("TEST_GRPC_SERVER_PORT")
	if port != "" {
		grpcServerPort, _ = strconv.Atoi(port)
	}

	host := os.Getenv("TEST_POSTGRES_HOST")
	if host != "" {
		pgHost = host
	}
	port = os.Getenv("TEST_POSTGRES_PORT")
	if port != "" {
		var err error
		pgPort, err = strconv.Atoi(port)
		if err != nil {
			log.Printf("failed to parse port '%s': %v", port, err)
			os.Exit(-1)
		}
	}

	storage := os.Getenv("TEST_STORAGE_TYPE")
	if storage != "" {
		storageType = storage
	}

	httpServerURL = fmt.Sprintf("http://%s/", net.JoinHostPort(httpServerHost, strconv.Itoa(httpServerPort)))

	if err := cleanupDB(); err != nil {
		log.Printf("failed to clean database: %v", err)
		os.Exit(-1)
	}
	code := m.Run()
	os.Exit(code)
}

type createResponse struct {
	IDs []string `json:"ids"`
}

func TestVotingDeadline(t *testing.T) {
	startServer(t)

	start := time.Now().Truncate(time.Second).Add(72 * time.Hour)
	passed := time.Now().Add(-time.Minute)
	body, err := json.Marshal([]app.Draft{{
		Title:          "Spiel gegen SV Nord",
		Type:           storage.TypeGame,
		StartTime:      start,
		EndTime:        start.Add(2 * time.Hour),
		VotingDeadline: &passed,
		InvitedPlayers: []string{"p1", "p2", "p3"},
	}})
	require.NoError(t, err)

	resp := sendRequest(t, http.MethodPost, "events", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created createResponse
	readJSON(t, resp, &created)
	require.Len(t, created.IDs, 1)
	id := created.IDs[0]

	resp = sendRequest(t, http.MethodPost, "events/"+id+"/responses",
		[]byte(`{"playerId":"p1","status":"accepted"}`))
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	for i, declined := range []int{2, 0} {
		resp = sendRequest(t, http.MethodPost, "events/"+id+"/auto-decline", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var res app.AutoDeclineResult
		readJSON(t, resp, &res)
		require.Equal(t, declined, res.Declined, "run %d", i)
		require.True(t, res.AutoDeclineProcessed)
	}

	resp = sendRequest(t, http.MethodGet, "events/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var e storage.Event
	readJSON(t, resp, &e)
	require.Equal(t, []string{"p2", "p3"}, e.DeclinedPlayers)
	for _, r := range e.PlayerResponses {
		if r.PlayerID != "p1" {
			require.True(t, deadline.IsAutoDecline(r))
		}
	}
	require.True(t, e.StartTime.Equal(start))
}

func TestCalendarFeed(t *testing.T) {
	startServer(t)

	resp := sendRequest(t, http.MethodGet, "events.ics", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(data), "BEGIN:VCALENDAR")
}

func readJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v), "failed to parse body")
}

func sendRequest(t *testing.T, method, path string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, httpServerURL+path, bytes.NewReader(body))
	require.NoError(t, err, "failed to create request")
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "failed send request")
	return resp
}

func startServer(t *testing.T) {
	t.Helper()

	stor, err := storagebuilder.New(storagebuilder.Config{
		StorageType: storageType,
		Database: sqlstorage.Config{
			Driver:   sqlstorage.DriverPostgres,
			Host:     pgHost,
			Port:     pgPort,
			Database: pgDatabase,
			Username: pgUsername,
			Password: pgPassword,
		},
	})
	require.NoError(t, err, "failed to create storage")

	events := app.New(stor, zone.MustNew(zone.DefaultName), app.Config{})
	grpcServer := internalgrpc.NewServer(internalgrpc.Config{Host: grpcServerHost, Port: grpcServerPort})
	httpServer := internalhttp.NewServer(internalhttp.Config{
		Host: httpServerHost,
		Port: httpServerPort,
	}, events, grpcServer.Health())

	ctx, cancel := context.WithCancel(context.Background())
	go grpcServer.WatchStorage(ctx, stor, time.Second)
	go func() {
		grpcServer.Start(ctx)
	}()

	// Wait until storage is reported healthy over grpc
	require.Eventually(t, func() bool {
		conn, err := grpc.Dial(
			net.JoinHostPort(grpcServerHost, strconv.Itoa(grpcServerPort)),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		if err != nil {
			return false
		}
		defer conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{
			Service: internalgrpc.ServiceName,
		})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, 5*time.Second, 200*time.Millisecond)

	go func() {
		httpServer.Start(ctx, runtime.NewServeMux())
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get(httpServerURL + "health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 200*time.Millisecond)

	t.Cleanup(func() {
		cancel()
		httpServer.Stop(context.Background())
		grpcServer.Stop(context.Background())
		stor.Close(context.Background())
		require.NoError(t, cleanupDB())
	})
}

func cleanupDB() error {
	if storageType != storagebuilder.TypeSQL {
		return nil
	}
	db, err := sqlx.Connect(
		"postgres",
		fmt.Sprintf(
			"sslmode=disable host=%s port=%d dbname=%s user=%s password=%s",
			pgHost,
			pgPort,
			pgDatabase,
			pgUsername,
			pgPassword,
		),
	)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec("TRUNCATE TABLE events")
	return err
}
