package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/domain"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/stage"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

// Engine runs the feature pipeline: one batch pass over an immutable event
// table, stages in dependency order, each appending columns. The per-client
// stages partition work by client internally; the market stage runs after
// them as a single company-wide pass. Any stage failure aborts the whole
// run so half-built feature sets never ship.
type Engine struct {
	params stage.Params
	stages []stage.Stage
	log    *zap.Logger
}

// New creates an engine with the standard stage order.
func New(params stage.Params, log *zap.Logger) *Engine {
	return &Engine{
		params: params,
		log:    log,
		stages: []stage.Stage{
			stage.NewFlags(params, log),
			stage.NewRolling(params, log),
			stage.NewLag(params, log),
			stage.NewSmoothing(params, log),
			stage.NewMarket(params, log),
			stage.NewGap(params, log),
			stage.NewSpam(params, log),
		},
	}
}

type rowFingerprint struct {
	messageID string
	sentAt    time.Time
}

// Run validates the rows, executes every stage, and returns the augmented
// table. Raw rows are checked for mutation after the pass.
func (e *Engine) Run(ctx context.Context, rows []*domain.Message) (*table.Table, error) {
	tbl, err := table.New(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to build event table: %w", err)
	}

	report := tbl.Report()
	if len(report.NullSentRows) > 0 {
		e.log.Warn("rows without send timestamp excluded from temporal aggregation",
			zap.Int("count", len(report.NullSentRows)))
	}
	for _, inc := range report.Inconsistencies {
		e.log.Warn("temporal inconsistency, row excluded as outcome contributor",
			zap.String("issue", inc.String()))
	}

	prints := make([]rowFingerprint, len(rows))
	for i, m := range rows {
		prints[i] = rowFingerprint{messageID: m.MessageID, sentAt: m.SentAt}
	}

	for _, st := range e.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		started := time.Now()
		cols, err := st.Apply(ctx, tbl)
		if err != nil {
			return nil, fmt.Errorf("stage %s failed: %w", st.Name(), err)
		}
		tbl, err = tbl.WithColumns(cols...)
		if err != nil {
			return nil, fmt.Errorf("stage %s produced invalid columns: %w", st.Name(), err)
		}
		e.log.Info("stage complete",
			zap.String("stage", st.Name()),
			zap.Int("columns", len(cols)),
			zap.Duration("took", time.Since(started)))
	}

	for i, m := range rows {
		if prints[i].messageID != m.MessageID || !prints[i].sentAt.Equal(m.SentAt) {
			return nil, fmt.Errorf("raw column mutated during feature pass at row %d", i)
		}
	}

	e.log.Info("feature pass complete",
		zap.Int("rows", tbl.NumRows()),
		zap.Int("feature_columns", len(tbl.Columns())))

	return tbl, nil
}
