package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/moklem/tv-herren-bereich/internal/app"
	"github.com/moklem/tv-herren-bereich/internal/logger"
	"github.com/moklem/tv-herren-bereich/internal/rabbit"
	internalgrpc "github.com/moklem/tv-herren-bereich/internal/server/grpc"
	internalhttp "github.com/moklem/tv-herren-bereich/internal/server/http"
	"github.com/moklem/tv-herren-bereich/internal/storagebuilder"
	"github.com/moklem/tv-herren-bereich/internal/zone"
	log "github.com/sirupsen/logrus"
)

const stopTimeout = 3 * time.Second

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "./configs/config.yaml", "Path to configuration file")
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.WarnLevel)
}

func main() {
	flag.Parse()

	if flag.Arg(0) == "version" {
		printVersion()
		return
	}
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
	stor, err := storagebuilder.New(config.Storage)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := stor.Close(ctx); err != nil {
			log.Errorf("failed to close storage: %v", err)
		}
	}()

	events := app.New(stor, z, config.App)
	if config.Notify {
		r := rabbit.New(config.Rabbit)
		if err := r.Connect(); err != nil {
			log.Errorf("notices are disabled: %v", err)
		} else {
			defer r.Close()
			events.Notifier = rabbit.NewNotifier(r)
		}
	}

	grpcServer := internalgrpc.NewServer(config.GrpcServer)
	httpServer := internalhttp.NewServer(config.HTTPServer, events, grpcServer.Health())

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	go grpcServer.WatchStorage(ctx, stor, config.HealthInterval)
	grpcFailed := make(chan struct{})
	go func() {
		if err := grpcServer.Start(ctx); err != nil {
			log.Errorf("failed to start grpc server: %v", err)
			close(grpcFailed)
			cancel()
		}
	}()
	go func() {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()

		if err := httpServer.Stop(ctx); err != nil {
			log.Error("failed to stop http server: " + err.Error())
		}
		if err := grpcServer.Stop(ctx); err != nil {
			log.Error("failed to stop grpc server: " + err.Error())
		}
	}()

	log.Infof("events service is running in %s...", z.Name())

	if err := httpServer.Start(ctx, runtime.NewServeMux()); err != nil {
		log.Error("failed to start http server: " + err.Error())
		cancel()
		return 1
	}
	select {
	case <-grpcFailed:
		return 1
	default:
		return 0
	}
}
