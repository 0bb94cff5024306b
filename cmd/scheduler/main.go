package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moklem/tv-herren-bereich/internal/app"
	"github.com/moklem/tv-herren-bereich/internal/logger"
	"github.com/moklem/tv-herren-bereich/internal/rabbit"
	"github.com/moklem/tv-herren-bereich/internal/storagebuilder"
	"github.com/moklem/tv-herren-bereich/internal/zone"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "./configs/scheduler_config.yaml", "Path to configuration file")
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.WarnLevel)
}

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	config, err := NewConfig(configFile)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return 1
	}
	if err := logger.PrepareLogger(config.Logger); err != nil {
		log.Errorf("failed to start %v", err)
		return 1
	}
	z, err := zone.New(config.Zone)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return 1
	}

	r := rabbit.New(config.Rabbit)
	defer r.Close()
	if err := r.Connect(); err != nil {
		log.Errorf("failed to start %v", err)
		return 1
	}

	stor, err := storagebuilder.New(config.Storage)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()
		if err := stor.Close(ctx); err != nil {
			log.Errorf("failed to close storage: %v", err)
		}
	}()

	events := app.New(stor, z, config.App)
	events.Notifier = rabbit.NewNotifier(r)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	c, err := newCron(ctx, events, z, config.Schedule)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return 1
	}

	c.Start()
	log.Infof("auto-decline sweep scheduled %q", config.Schedule)
	<-ctx.Done()
	<-c.Stop().Done()
	return 0
}

// newCron schedules the auto-decline sweep in the zone of z.
func newCron(ctx context.Context, events *app.App, z *zone.Converter, schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(z.Location()))
	_, err := c.AddFunc(schedule, func() {
		report, err := events.Sweep(ctx, time.Now())
		entry := log.WithField("scanned", report.Scanned).
			WithField("transitioned", report.Transitioned).
			WithField("declined", report.Declined).
			WithField("errors", report.Errors)
		if err != nil {
			entry.Errorf("auto-decline sweep stopped: %v", err)
			return
		}
		entry.Info("auto-decline sweep finished")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule sweep %q: %w", schedule, err)
	}
	return c, nil
}
