package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"FirsatRadar/internal/app"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	task := flag.String("task", "schedule", "Task to run: scan, schedule, or sections")
	configPath := flag.String("config", "config.yml", "Path to the configuration file")
	flag.Parse()

	application, err := app.New(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Startup failed")
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithField("task", *task).Info("Running task")

	switch *task {
	case "scan":
		// One pass over every enabled marketplace, then exit.
		application.RunScanOnce(ctx)

	case "schedule":
		// Keep scanning on the configured cron expression.
		if err := application.RunScheduled(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Fatal("Scheduler failed")
		}

	case "sections":
		// Print the Teknosa outlet sections for config maintenance.
		if err := application.RunSectionDiscovery(); err != nil {
			log.WithError(err).Fatal("Section discovery failed")
		}

	default:
		log.WithField("task", *task).Error("Unknown task")
		os.Exit(1)
	}
}
