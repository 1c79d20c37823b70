package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budgetsplit/internal/amqp"
	"budgetsplit/internal/cli"
	"budgetsplit/internal/colors"
	"budgetsplit/internal/rules"
	"budgetsplit/internal/services"
	ports "budgetsplit/internal/sheets"
	gsheet "budgetsplit/internal/sheets/google"
	mem "budgetsplit/internal/sheets/memory"
	"budgetsplit/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting rules-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The worker reads the same store the server writes. Messages only
	// say that something changed; the rows come from here.
	store := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer store.Close()

	repo := rules.NewRepository(store, colors.NewRandom(time.Now().UnixNano()))

	// Without Google credentials the worker mirrors into memory, which
	// keeps the consume loop exercisable in local setups.
	var mirror ports.RuleMirror
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mirror = mem.New()
		logger.Info("Google Sheets disabled, mirroring in memory")
	}

	processor := services.NewMirrorProcessor(repo, mirror, services.MirrorProcessorConfig{
		RefreshInterval: cfg.MirrorRefreshInterval,
	})
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start mirror processor", "error", err)
		os.Exit(1)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := processor.Stop(stopCtx); err != nil {
			logger.Error("Mirror processor stop failed", "error", err)
		}
	}()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirrorWorker := worker.NewMirrorWorker(processor)

	logger.Info("Consuming rule sync messages",
		"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue,
		"refresh_interval", cfg.MirrorRefreshInterval)

	if err := amqpClient.ConsumeRuleSync(ctx, mirrorWorker.HandleSyncMessage); err != nil &&
		!errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
