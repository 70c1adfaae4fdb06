package stage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

var lagSources = []string{
	"is_opened",
	"is_clicked",
	"is_purchased",
	"time_to_open_hours",
	"time_to_click_hours",
}

var lagRateMetrics = []string{"is_opened", "is_clicked", "is_purchased"}

// Lag computes per-client previous-row values and the rolling engagement
// rates built on top of them. Raw outcome columns are never aggregated over
// a window directly; the lag-shifted column is the aggregation input, so a
// row's own outcome can never reach its own features.
type Lag struct {
	params Params
	log    *zap.Logger
}

// NewLag creates the lag/shift stage.
func NewLag(params Params, log *zap.Logger) *Lag {
	return &Lag{params: params, log: log}
}

func (s *Lag) Name() string { return "lag_shift" }

func (s *Lag) Apply(ctx context.Context, tbl *table.Table) ([]table.Column, error) {
	n := tbl.NumRows()

	srcCols := make([]*table.Column, len(lagSources))
	lagCols := make([]table.Column, len(lagSources))
	for k, name := range lagSources {
		src, ok := tbl.Column(name)
		if !ok {
			return nil, fmt.Errorf("lag source column %q not computed", name)
		}
		srcCols[k] = src
		lagCols[k] = table.NewColumn(name+"_prev", n)
	}

	ord := tbl.Ordering()
	err := forEachKey(ctx, ord.ClientIDs(), s.params.Workers, func(clientID string) {
		seq := ord.ByClient[clientID]
		for pos, i := range seq {
			if pos == 0 {
				continue
			}
			prev := seq[pos-1]
			for k, src := range srcCols {
				if v, ok := src.Value(prev); ok {
					lagCols[k].Set(i, v)
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}

	// The rate windows read the freshly built lag columns, which are not
	// on the table yet; index them locally.
	lagByName := make(map[string]*table.Column, len(lagCols))
	for k := range lagCols {
		lagByName[lagCols[k].Name] = &lagCols[k]
	}

	var rateCols []table.Column
	type rateSpec struct {
		out  string
		span Span
		src  *table.Column
	}
	var rateSpecs []rateSpec
	for _, metric := range lagRateMetrics {
		for _, sp := range []Span{Span1w, Span1m} {
			rateSpecs = append(rateSpecs, rateSpec{
				out:  fmt.Sprintf("%s_rate_%s", metric, sp.Label),
				span: sp,
				src:  lagByName[metric+"_prev"],
			})
			rateCols = append(rateCols, table.NewColumn(fmt.Sprintf("%s_rate_%s", metric, sp.Label), n))
		}
	}

	err = forEachKey(ctx, ord.ClientIDs(), s.params.Workers, func(clientID string) {
		seq := ord.ByClient[clientID]
		for k, spec := range rateSpecs {
			rollWindow(tbl, seq, spec.span.Duration, &meanAcc{col: spec.src}, &rateCols[k])
		}
	})
	if err != nil {
		return nil, err
	}

	return append(lagCols, rateCols...), nil
}
