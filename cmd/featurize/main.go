package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/config"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/engine"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/logger"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/source"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/source/clickhouse"
	csvsource "github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/source/csv"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/stage"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/summary"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.ServiceEnvironment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting feature engineering run",
		zap.String("environment", cfg.ServiceEnvironment),
		zap.String("source", cfg.SourceKind),
		zap.Int("workers", cfg.EngineWorkers))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		src  source.TableSource
		sink source.TableSink
	)

	switch cfg.SourceKind {
	case "clickhouse":
		chClient, err := clickhouse.NewClient(ctx, cfg, log)
		if err != nil {
			log.Fatal("Failed to create ClickHouse client", zap.Error(err))
		}
		defer func() {
			if err := chClient.Close(); err != nil {
				log.Error("Failed to close ClickHouse client", zap.Error(err))
			}
		}()

		repo := clickhouse.NewRepository(chClient, log)
		if err := repo.InitSchema(ctx); err != nil {
			log.Fatal("Failed to initialize schema", zap.Error(err))
		}
		src, sink = repo, repo

	case "csv":
		if cfg.InputPath == "" || cfg.OutputPath == "" {
			log.Fatal("INPUT_PATH and OUTPUT_PATH are required for the csv source")
		}
		src = csvsource.NewSource(cfg.InputPath, log)
		sink = csvsource.NewSink(cfg.OutputPath, log)

	default:
		log.Fatal("Unknown source kind", zap.String("source", cfg.SourceKind))
	}

	rows, err := src.Load(ctx)
	if err != nil {
		log.Fatal("Failed to load event table", zap.Error(err))
	}

	params := stage.Params{
		SmoothingAlpha:       cfg.SmoothingAlpha,
		SmoothingBeta:        cfg.SmoothingBeta,
		TimeToActionCapHours: cfg.TimeToActionCapHours,
		RiskWeights: stage.RiskWeights{
			SoftBounce:  cfg.RiskWeightSoftBounce,
			HardBounce:  cfg.RiskWeightHardBounce,
			Block:       cfg.RiskWeightBlock,
			Unsubscribe: cfg.RiskWeightUnsubscribe,
			Complaint:   cfg.RiskWeightComplaint,
		},
		Workers: cfg.EngineWorkers,
	}

	tbl, err := engine.New(params, log).Run(ctx, rows)
	if err != nil {
		log.Fatal("Feature pass failed", zap.Error(err))
	}

	if err := sink.Write(ctx, tbl); err != nil {
		log.Fatal("Failed to write augmented table", zap.Error(err))
	}

	summaries, err := summary.Describe(tbl)
	if err != nil {
		log.Fatal("Failed to summarize features", zap.Error(err))
	}
	summary.Log(log, summaries)
}
