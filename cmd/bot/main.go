package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"FirsatRadar/internal/app"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	configPath := flag.String("config", "config.yml", "Path to the configuration file")
	flag.Parse()

	application, err := app.New(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Startup failed")
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting subscription bot")
	if err := application.RunBot(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("Bot stopped")
	}
}
