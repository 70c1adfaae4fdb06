package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/config"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/logger"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/source"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/source/clickhouse"
	csvsource "github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/source/csv"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

// validate loads an event table and reports row-level issues without
// running the feature pass. Schema errors are fatal; temporal issues are
// listed one per line.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.ServiceEnvironment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		if err := log.Sync(); err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var src source.TableSource
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
		src = clickhouse.NewRepository(chClient, log)
	case "csv":
		if cfg.InputPath == "" {
			log.Fatal("INPUT_PATH is required for the csv source")
		}
		src = csvsource.NewSource(cfg.InputPath, log)
	default:
		log.Fatal("Unknown source kind", zap.String("source", cfg.SourceKind))
	}

	rows, err := src.Load(ctx)
	if err != nil {
		log.Error("Input validation failed", zap.Error(err))
		os.Exit(1)
	}

	tbl, err := table.New(rows)
	if err != nil {
		log.Error("Input validation failed", zap.Error(err))
		os.Exit(1)
	}

	report := tbl.Report()
	for _, id := range report.NullSentRows {
		log.Warn("row has no send timestamp", zap.String("message_id", id))
	}
	for _, inc := range report.Inconsistencies {
		log.Warn("temporal inconsistency", zap.String("issue", inc.String()))
	}

	log.Info("validation complete",
		zap.Int("rows", tbl.NumRows()),
		zap.Int("null_sent_rows", len(report.NullSentRows)),
		zap.Int("temporal_inconsistencies", len(report.Inconsistencies)))
}
