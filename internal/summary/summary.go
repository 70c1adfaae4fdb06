package summary

import (
	"fmt"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

// FeatureSummary describes the distribution of one feature column.
type FeatureSummary struct {
	Name    string
	Present int
	Missing int
	Mean    float64
	Median  float64
	StdDev  float64
	Min     float64
	Max     float64
}

// Describe computes descriptive statistics for every feature column over
// its present values.
func Describe(tbl *table.Table) ([]FeatureSummary, error) {
	cols := tbl.Columns()
	summaries := make([]FeatureSummary, 0, len(cols))

	for k := range cols {
		col := &cols[k]
		values := make(stats.Float64Data, 0, col.Len())
		for i := 0; i < col.Len(); i++ {
			if v, ok := col.Value(i); ok {
				values = append(values, v)
			}
		}

		s := FeatureSummary{
			Name:    col.Name,
			Present: len(values),
			Missing: col.Len() - len(values),
		}

		if len(values) > 0 {
			var err error
			if s.Mean, err = stats.Mean(values); err != nil {
				return nil, fmt.Errorf("failed to summarize %q: %w", col.Name, err)
			}
			if s.Median, err = stats.Median(values); err != nil {
				return nil, fmt.Errorf("failed to summarize %q: %w", col.Name, err)
			}
			if s.StdDev, err = stats.StandardDeviation(values); err != nil {
				return nil, fmt.Errorf("failed to summarize %q: %w", col.Name, err)
			}
			if s.Min, err = stats.Min(values); err != nil {
				return nil, fmt.Errorf("failed to summarize %q: %w", col.Name, err)
			}
			if s.Max, err = stats.Max(values); err != nil {
				return nil, fmt.Errorf("failed to summarize %q: %w", col.Name, err)
			}
		}

		summaries = append(summaries, s)
	}

	return summaries, nil
}

// Log emits one debug line per feature and an info rollup.
func Log(log *zap.Logger, summaries []FeatureSummary) {
	for _, s := range summaries {
		log.Debug("feature summary",
			zap.String("feature", s.Name),
			zap.Int("present", s.Present),
			zap.Int("missing", s.Missing),
			zap.Float64("mean", s.Mean),
			zap.Float64("median", s.Median),
			zap.Float64("stddev", s.StdDev),
			zap.Float64("min", s.Min),
			zap.Float64("max", s.Max))
	}
	log.Info("feature summary complete", zap.Int("features", len(summaries)))
}
