package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/PlanHarvest/internal/config"
	"github.com/dharsanguruparan/PlanHarvest/internal/database"
	"github.com/dharsanguruparan/PlanHarvest/internal/downloader"
	"github.com/dharsanguruparan/PlanHarvest/internal/httpclient"
	"github.com/dharsanguruparan/PlanHarvest/internal/logger"
	"github.com/dharsanguruparan/PlanHarvest/internal/metrics"
	"github.com/dharsanguruparan/PlanHarvest/internal/model"
	pdfutil "github.com/dharsanguruparan/PlanHarvest/internal/pdf"
	"github.com/dharsanguruparan/PlanHarvest/internal/repository"
	"github.com/dharsanguruparan/PlanHarvest/internal/s3storage"
	"github.com/dharsanguruparan/PlanHarvest/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()
	m := metrics.New()
	defer func() {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Error("write metrics", logger.Error(err))
		}
	}()

	kinds, err := model.ParseFileKinds(cfg.Kinds)
	if err != nil {
		return fmt.Errorf("HARVEST_KINDS: %w", err)
	}
	dcfg := downloader.Config{
		OutputDir: cfg.DownloadDir,
		Kinds:     kinds,
		Delay:     cfg.DownloadDelay,
		Timeout:   downloader.DefaultTimeout,
	}
	if cfg.VerifyPDF {
		dcfg.VerifyPDF = pdfutil.Verify
	}
	if cfg.MirrorEnabled() {
		store, err := s3storage.New(cfg)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure bucket: %w", err)
		}
		dcfg.Mirror = store
	}

	var recorder downloader.Recorder
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		recorder = repository.NewCatalogRepository(pool)
	}

	d := downloader.New(httpclient.NewClient(cfg.UserAgent), dcfg, log, m)
	processor := worker.NewProcessor(d, recorder, log)

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.DownloadWorkers,
	})

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.Info("worker started",
		logger.String("redis", cfg.RedisAddr),
		logger.Int("concurrency", cfg.DownloadWorkers),
		logger.Duration("delay", cfg.DownloadDelay),
	)
	if err := server.Run(processor.Handler()); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	return nil
}
