package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quoteflow/webhookd/internal/audit"
	"github.com/quoteflow/webhookd/internal/config"
	"github.com/quoteflow/webhookd/internal/handlers"
	"github.com/quoteflow/webhookd/internal/log"
	"github.com/quoteflow/webhookd/internal/metrics"
	"github.com/quoteflow/webhookd/internal/retry"
	"github.com/quoteflow/webhookd/internal/store"
	"github.com/quoteflow/webhookd/internal/webhook"
)

const version = "0.3.0"

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional; env vars override)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("webhookd version %s\n", version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "webhookd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.Get().With("service", cfg.Service.Name)
	logger.Info("starting", "version", version, "store", cfg.Store.Path)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	metrics.Register()

	// The routing table is built once here and read-only afterwards; no
	// global handler registry exists.
	set := handlers.New(store.New(db), logger)
	router := webhook.NewRouter(set.Routes())

	auditLog := audit.New(db, logger)
	queue := retry.NewQueue(db)
	scheduler := retry.NewScheduler(queue, logger)
	pipeline := webhook.NewPipeline(router, auditLog, scheduler, logger)

	if cfg.Retry.DrainEnabled {
		drainer := retry.NewDrainer(queue, pipeline, cfg.Retry.DrainInterval, logger)
		go func() {
			if err := drainer.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("retry drainer exited", "error", err)
			}
		}()
	} else {
		logger.Info("retry draining disabled, entries left for external worker")
	}

	server := webhook.NewServer(webhook.Config{
		Listen:       cfg.Webhook.Listen,
		SharedSecret: cfg.Webhook.SharedSecret,
		MaxBodySize:  cfg.Webhook.MaxBodySize,
	}, pipeline, auditLog, queue, logger)

	return server.Start(ctx)
}
