package stage

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

// Stage computes a batch of feature columns from the table built so far.
// Stages are pure with respect to raw rows: they read the table and return
// new columns, never mutating anything in place.
type Stage interface {
	Name() string
	Apply(ctx context.Context, tbl *table.Table) ([]table.Column, error)
}

// Span is a trailing window ending strictly before the current row.
type Span struct {
	Label    string
	Duration time.Duration
}

var (
	Span6h = Span{Label: "6h", Duration: 6 * time.Hour}
	Span1d = Span{Label: "1d", Duration: 24 * time.Hour}
	Span1w = Span{Label: "1w", Duration: 7 * 24 * time.Hour}
	Span1m = Span{Label: "1m", Duration: 30 * 24 * time.Hour}
)

// Params carries the tunable feature constants into the stages. They are
// threaded explicitly so separate runs can never leak state into each other.
type Params struct {
	SmoothingAlpha       float64
	SmoothingBeta        float64
	TimeToActionCapHours float64
	RiskWeights          RiskWeights
	Workers              int
}

// RiskWeights are the version-pinned spam risk index weights.
type RiskWeights struct {
	SoftBounce  float64
	HardBounce  float64
	Block       float64
	Unsubscribe float64
	Complaint   float64
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		SmoothingAlpha:       1,
		SmoothingBeta:        1,
		TimeToActionCapHours: 720,
		RiskWeights: RiskWeights{
			SoftBounce:  0.30,
			HardBounce:  0.40,
			Block:       0.20,
			Unsubscribe: 0.05,
			Complaint:   0.05,
		},
		Workers: 1,
	}
}

// forEachKey fans the per-entity work across a bounded worker pool.
// Safe because entity sequences touch disjoint row indices.
func forEachKey[K any](ctx context.Context, keys []K, workers int, fn func(K)) error {
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(key)
			return nil
		})
	}
	return g.Wait()
}
