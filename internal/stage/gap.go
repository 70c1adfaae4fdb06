package stage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

// metricShortNames maps outcome columns to the short names used by the
// deviation features.
var metricShortNames = map[string]string{
	"is_opened":    "open",
	"is_clicked":   "click",
	"is_purchased": "purchase",
}

// Gap computes the expectation gap and market deviation columns. Pure
// row-local arithmetic over columns the earlier stages produced; it adds no
// window logic of its own and therefore must run last among the engagement
// stages.
type Gap struct {
	params Params
	log    *zap.Logger
}

// NewGap creates the gap/deviation stage.
func NewGap(params Params, log *zap.Logger) *Gap {
	return &Gap{params: params, log: log}
}

func (s *Gap) Name() string { return "expectation_gaps" }

func (s *Gap) Apply(ctx context.Context, tbl *table.Table) ([]table.Column, error) {
	n := tbl.NumRows()
	var cols []table.Column

	for _, metric := range lagRateMetrics {
		smooth, ok := tbl.Column(metric + "_rate_prev_smooth")
		if !ok {
			return nil, fmt.Errorf("gap stage: column %q not computed", metric+"_rate_prev_smooth")
		}

		// Recent rolling rate vs the smoothed long-term baseline. Positive
		// means the client is doing better than its own history suggests.
		for _, sp := range []Span{Span1w, Span1m} {
			rate := tbl.MustColumn(fmt.Sprintf("%s_rate_%s", metric, sp.Label))
			gap := table.NewColumn(fmt.Sprintf("%s_expect_gap_%s", metric, sp.Label), n)
			for i := 0; i < n; i++ {
				r, rok := rate.Value(i)
				b, bok := smooth.Value(i)
				if rok && bok {
					gap.Set(i, r-b)
				}
			}
			cols = append(cols, gap)
		}

		// Overall gap uses the strictly prior expanding client rate, never
		// the full-table client mean, so no future row can reach it.
		expanding := tbl.MustColumn(metric + "_rate_prev_expanding")
		overall := table.NewColumn(metric+"_expect_gap_overall", n)
		for i := 0; i < n; i++ {
			e, eok := expanding.Value(i)
			b, bok := smooth.Value(i)
			if eok && bok {
				overall.Set(i, e-b)
			}
		}
		cols = append(cols, overall)

		// Relative deviation of the client from the market. A zero global
		// rate yields missing, never a division fault.
		short := metricShortNames[metric]
		for _, sp := range []Span{Span1w, Span1m} {
			clientRate := tbl.MustColumn(fmt.Sprintf("%s_rate_%s", metric, sp.Label))
			globalRate, ok := tbl.Column(fmt.Sprintf("global_%s_rate_%s", metric, sp.Label))
			if !ok {
				return nil, fmt.Errorf("gap stage: column %q not computed", fmt.Sprintf("global_%s_rate_%s", metric, sp.Label))
			}
			dev := table.NewColumn(fmt.Sprintf("%s_deviation_%s", short, sp.Label), n)
			for i := 0; i < n; i++ {
				c, cok := clientRate.Value(i)
				g, gok := globalRate.Value(i)
				if cok && gok && g != 0 {
					dev.Set(i, (c-g)/g)
				}
			}
			cols = append(cols, dev)
		}
	}

	return cols, nil
}
