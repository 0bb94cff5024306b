package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/moklem/tv-herren-bereich/internal/logger"
	"github.com/moklem/tv-herren-bereich/internal/rabbit"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "./configs/sender_config.yaml", "Path to configuration file")
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.WarnLevel)
}

func main() {
	flag.Parse()

	config, err := NewConfig(configFile)
	if err != nil {
		log.Errorf("failed to start %v", err)
		os.Exit(1)
	}
	if err := logger.PrepareLogger(config.Logger); err != nil {
		log.Errorf("failed to start %v", err)
		os.Exit(1)
	}

	r := rabbit.New(config.Rabbit)
	if err := r.Connect(); err != nil {
		log.Errorf("failed to start %v", err)
		os.Exit(1)
	}
	defer r.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	err = r.Consume(ctx, func(msg amqp.Delivery) error {
		if msg.Type != "" && msg.Type != rabbit.NoticeType {
			return fmt.Errorf("unexpected message type %q", msg.Type)
		}
		notice, err := rabbit.DecodeNotice(msg.Body)
		if err != nil {
			return err
		}
		for _, player := range notice.Players {
			log.WithField("event", notice.EventID).
				WithField("player", player).
				WithField("start", notice.StartTime).
				Infof("player auto-declined for %q", notice.Title)
		}
		return nil
	})
	if err != nil {
		log.Errorf("consumer stopped: %v", err)
	}
}
