package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"photocurate/internal/blob"
	"photocurate/internal/caption"
	"photocurate/internal/logging"
	"photocurate/internal/publish"
	"photocurate/internal/queue"
	"photocurate/internal/server"
	"photocurate/internal/storage"
	"photocurate/internal/tracing"
	"photocurate/internal/variation"
	"photocurate/internal/workflow"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and the variation workers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overrides server_addr",
			},
			&cli.StringFlag{
				Name:  "log-mode",
				Usage: "development or production",
			},
		},
		Action: serve,
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("tracing shutdown", zap.Error(err))
		}
	}()

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}
	defer store.Close()

	blobs, err := blob.Open(ctx, cfg.Blobs)
	if err != nil {
		return fmt.Errorf("failed to init blob store: %w", err)
	}
	if c, ok := blobs.(io.Closer); ok {
		defer c.Close()
	}

	jobs, err := queue.Open(cfg.Queue, logger)
	if err != nil {
		return fmt.Errorf("failed to init queue: %w", err)
	}
	defer jobs.Close()

	generator := variation.NewGenerator(blobs, store.Variations, logger,
		variation.WithWorkers(cfg.Workflow.GenerationWorkers))

	ctrl := workflow.NewController(cfg.Workflow, workflow.Deps{
		Store:     store,
		Blobs:     blobs,
		Generator: generator,
		Queue:     jobs,
		Captions:  caption.New(cfg.Caption, logger),
		Publisher: publish.NewMock(cfg.Publish.Network, logger),
		Logger:    logger,
	})

	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		if err := jobs.Run(ctx, ctrl.HandleGeneration); err != nil {
			logger.Error("queue stopped", zap.Error(err))
		}
	}()

	srv := server.NewServer(cfg, ctrl, blobs, logger)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		if err != nil {
			stop()
			<-workersDone
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	<-workersDone
	return nil
}
