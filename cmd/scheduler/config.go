package main

import (
	"github.com/moklem/tv-herren-bereich/internal/app"
	"github.com/moklem/tv-herren-bereich/internal/config"
	"github.com/moklem/tv-herren-bereich/internal/logger"
	"github.com/moklem/tv-herren-bereich/internal/rabbit"
	"github.com/moklem/tv-herren-bereich/internal/storagebuilder"
	"github.com/moklem/tv-herren-bereich/internal/zone"
)

type Config struct {
	Logger  logger.Config
	Rabbit  rabbit.Config
	Storage storagebuilder.Config
	App     app.Config
	Zone    string
	// Schedule is a cron expression for the auto-decline sweep.
	Schedule string
}

func NewConfig(configFile string) (Config, error) {
	c := Config{}
	err := config.Load(configFile, map[string]interface{}{
		"rabbit.host":         "127.0.0.1",
		"rabbit.port":         "5672",
		"rabbit.user":         "user",
		"rabbit.password":     "pass",
		"rabbit.queue":        "events.auto-decline",
		"logger.level":        "WARN",
		"logger.format":       logger.FormatText,
		"storage.storageType": storagebuilder.TypeMemory,
		"zone":                zone.DefaultName,
		"schedule":            "@every 5m",
	}, &c)
	return c, err
}
