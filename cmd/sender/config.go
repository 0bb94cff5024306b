package main

import (
	"github.com/moklem/tv-herren-bereich/internal/config"
	"github.com/moklem/tv-herren-bereich/internal/logger"
	"github.com/moklem/tv-herren-bereich/internal/rabbit"
)

type Config struct {
	Logger logger.Config
	Rabbit rabbit.Config
}

func NewConfig(configFile string) (Config, error) {
	c := Config{}
	err := config.Load(configFile, map[string]interface{}{
		"rabbit.host":     "127.0.0.1",
		"rabbit.port":     "5672",
		"rabbit.user":     "user",
		"rabbit.password": "pass",
		"rabbit.queue":    "events.auto-decline",
		"rabbit.prefetch": 10,
		"logger.level":    "INFO",
		"logger.format":   logger.FormatText,
	}, &c)
	return c, err
}
