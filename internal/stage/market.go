package stage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

// Market builds the hourly company-wide series (send volume and engagement
// rates), computes closed-left rolling means over it, and joins the result
// back onto each message as of the most recent hour bucket strictly before
// the message's own send hour. A message never sees its own bucket or a
// future one.
type Market struct {
	params Params
	log    *zap.Logger
}

// NewMarket creates the market merge stage.
func NewMarket(params Params, log *zap.Logger) *Market {
	return &Market{params: params, log: log}
}

func (s *Market) Name() string { return "market_merge" }

var marketSpans = []Span{Span6h, Span1d, Span1w, Span1m}
var globalRateSpans = []Span{Span1d, Span1w, Span1m}

func (s *Market) Apply(ctx context.Context, tbl *table.Table) ([]table.Column, error) {
	n := tbl.NumRows()
	ord := tbl.Ordering()

	totalMsgs := table.NewColumn("total_msgs", n)
	marketAvg := make([]table.Column, len(marketSpans))
	for k, sp := range marketSpans {
		marketAvg[k] = table.NewColumn("market_avg_msgs_"+sp.Label, n)
	}
	globalCols := make([]table.Column, 0, len(lagRateMetrics)*len(globalRateSpans))
	for _, metric := range lagRateMetrics {
		for _, sp := range globalRateSpans {
			globalCols = append(globalCols, table.NewColumn(fmt.Sprintf("global_%s_rate_%s", metric, sp.Label), n))
		}
	}

	out := make([]table.Column, 0, 1+len(marketAvg)+len(globalCols))
	out = append(out, totalMsgs)
	out = append(out, marketAvg...)
	out = append(out, globalCols...)

	if len(ord.Company) == 0 {
		return out, nil
	}

	start := tbl.Row(ord.Company[0]).SentAt.Truncate(time.Hour)
	end := tbl.Row(ord.Company[len(ord.Company)-1]).SentAt.Truncate(time.Hour)
	nb := int(end.Sub(start)/time.Hour) + 1

	// Contiguous hourly buckets; hours with no traffic stay at zero so the
	// rolling means see genuine quiet periods.
	counts := make([]float64, nb)
	outcomeSums := make([][]float64, len(lagRateMetrics))
	outcomeCnts := make([]float64, nb)
	for k := range lagRateMetrics {
		outcomeSums[k] = make([]float64, nb)
	}

	srcs := make([]*table.Column, len(lagRateMetrics))
	for k, metric := range lagRateMetrics {
		src, ok := tbl.Column(metric)
		if !ok {
			return nil, fmt.Errorf("market source column %q not computed", metric)
		}
		srcs[k] = src
	}

	bucketOf := func(i int) int {
		return int(tbl.Row(i).SentAt.Truncate(time.Hour).Sub(start) / time.Hour)
	}

	for _, i := range ord.Company {
		j := bucketOf(i)
		if j < 0 || j >= nb {
			// The bucket range is derived from the same rows, so a miss
			// means corrupted shared state; abort instead of guessing.
			return nil, fmt.Errorf("market merge: message %s maps outside the hourly bucket range", tbl.Row(i).MessageID)
		}
		counts[j]++
		if tbl.OutcomeValid(i) {
			outcomeCnts[j]++
			for k, src := range srcs {
				if v, ok := src.Value(i); ok {
					outcomeSums[k][j] += v
				}
			}
		}
	}

	hourlyRates := make([][]float64, len(lagRateMetrics))
	for k := range lagRateMetrics {
		hourlyRates[k] = make([]float64, nb)
		for j := 0; j < nb; j++ {
			if outcomeCnts[j] > 0 {
				hourlyRates[k][j] = outcomeSums[k][j] / outcomeCnts[j]
			}
		}
	}

	countPrefix := prefixSums(counts)
	ratePrefix := make([][]float64, len(lagRateMetrics))
	for k := range hourlyRates {
		ratePrefix[k] = prefixSums(hourlyRates[k])
	}

	// rollingHourlyMean returns the mean over buckets [j-k, j), i.e. the
	// trailing window excluding bucket j itself; defined once at least one
	// prior bucket exists.
	rollingHourlyMean := func(prefix []float64, j, k int) (float64, bool) {
		lo := j - k
		if lo < 0 {
			lo = 0
		}
		if j-lo == 0 {
			return 0, false
		}
		return (prefix[j] - prefix[lo]) / float64(j-lo), true
	}

	for _, i := range ord.Company {
		j := bucketOf(i) - 1
		if j < 0 {
			continue // first bucket has nothing strictly before it
		}
		totalMsgs.Set(i, counts[j])
		for k, sp := range marketSpans {
			if v, ok := rollingHourlyMean(countPrefix, j, int(sp.Duration/time.Hour)); ok {
				marketAvg[k].Set(i, v)
			}
		}
		col := 0
		for m := range lagRateMetrics {
			for _, sp := range globalRateSpans {
				if v, ok := rollingHourlyMean(ratePrefix[m], j, int(sp.Duration/time.Hour)); ok {
					globalCols[col].Set(i, v)
				}
				col++
			}
		}
	}

	s.log.Debug("market merge complete",
		zap.Int("hour_buckets", nb),
		zap.Time("first_bucket", start),
		zap.Time("last_bucket", end))

	return out, nil
}

func prefixSums(xs []float64) []float64 {
	prefix := make([]float64, len(xs)+1)
	for i, x := range xs {
		prefix[i+1] = prefix[i] + x
	}
	return prefix
}
