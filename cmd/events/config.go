package main

import (
	"time"

	"github.com/moklem/tv-herren-bereich/internal/app"
	"github.com/moklem/tv-herren-bereich/internal/config"
	"github.com/moklem/tv-herren-bereich/internal/logger"
	"github.com/moklem/tv-herren-bereich/internal/rabbit"
	internalgrpc "github.com/moklem/tv-herren-bereich/internal/server/grpc"
	internalhttp "github.com/moklem/tv-herren-bereich/internal/server/http"
	"github.com/moklem/tv-herren-bereich/internal/storagebuilder"
	"github.com/moklem/tv-herren-bereich/internal/zone"
)

type Config struct {
	HTTPServer internalhttp.Config
	GrpcServer internalgrpc.Config
	Logger     logger.Config
	Storage    storagebuilder.Config
	App        app.Config
	Zone       string
	// HealthInterval is the pause between storage checks.
	HealthInterval time.Duration
	// Notify enables auto-decline notices through Rabbit.
	Notify bool
	Rabbit rabbit.Config
}

func NewConfig(configFile string) (Config, error) {
	c := Config{}
	err := config.Load(configFile, map[string]interface{}{
		"httpServer.host":     "127.0.0.1",
		"httpServer.port":     "8005",
		"grpcServer.host":     "127.0.0.1",
		"grpcServer.port":     "8006",
		"logger.level":        "WARN",
		"logger.format":       logger.FormatText,
		"storage.storageType": storagebuilder.TypeMemory,
		"zone":                zone.DefaultName,
		"healthInterval":      "30s",
		"notify":              false,
		"rabbit.host":         "127.0.0.1",
		"rabbit.port":         "5672",
		"rabbit.queue":        "events.auto-decline",
	}, &c)
	return c, err
}
