package stage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

const (
	aggCount    = "count"
	aggSum      = "sum"
	aggMean     = "mean"
	aggDistinct = "distinct"
)

type rollingSpec struct {
	out  string
	span Span
	agg  string
	src  string // source column; empty for count and distinct
}

// clientRollingSpecs enumerates every per-client rolling column. Counts and
// sums default to 0 on an empty window; means and distinct counts are
// missing.
func clientRollingSpecs() []rollingSpec {
	specs := []rollingSpec{}

	addAll := func(prefix, agg, src string, spans ...Span) {
		for _, sp := range spans {
			specs = append(specs, rollingSpec{
				out:  fmt.Sprintf("%s_%s", prefix, sp.Label),
				span: sp,
				agg:  agg,
				src:  src,
			})
		}
	}

	all := []Span{Span1d, Span1w, Span1m}

	addAll("sent_count", aggCount, "", all...)
	addAll("sent_count_email", aggSum, "is_email", all...)
	addAll("sent_count_push", aggSum, "is_push", all...)
	addAll("avg_interval", aggMean, "days_since_last_msg", all...)
	addAll("weekend_ratio", aggMean, "is_weekend", Span1w, Span1m)
	addAll("working_hours_ratio", aggMean, "is_working_hours", all...)
	addAll("bulk_count", aggSum, "is_bulk", all...)
	addAll("triggered_count", aggSum, "is_triggered", all...)
	addAll("transactional_count", aggSum, "is_transactional", all...)
	addAll("avg_subject_len", aggMean, "subject_length", all...)
	for _, feat := range []string{"personalization", "bonuses", "saleout", "discount", "deadline", "emoji"} {
		addAll("subject_"+feat+"_prop", aggMean, "subject_with_"+feat, all...)
	}
	addAll("ab_test_count", aggSum, "ab_test", all...)
	addAll("warmup_mode_count", aggSum, "warmup_mode", all...)
	addAll("unique_campaigns", aggDistinct, "", all...)

	return specs
}

// Rolling computes the per-client rolling window columns. Every window is
// [t-span, t): the current row and same-instant siblings are never inside
// their own window.
type Rolling struct {
	params Params
	log    *zap.Logger
}

// NewRolling creates the per-client rolling window stage.
func NewRolling(params Params, log *zap.Logger) *Rolling {
	return &Rolling{params: params, log: log}
}

func (s *Rolling) Name() string { return "rolling_windows" }

func (s *Rolling) Apply(ctx context.Context, tbl *table.Table) ([]table.Column, error) {
	specs := clientRollingSpecs()
	cols := make([]table.Column, len(specs))
	sources := make([]*table.Column, len(specs))
	for k, spec := range specs {
		cols[k] = table.NewColumn(spec.out, tbl.NumRows())
		if spec.src != "" {
			src, ok := tbl.Column(spec.src)
			if !ok {
				return nil, fmt.Errorf("rolling column %q: source column %q not computed", spec.out, spec.src)
			}
			sources[k] = src
		}
	}

	ord := tbl.Ordering()
	err := forEachKey(ctx, ord.ClientIDs(), s.params.Workers, func(clientID string) {
		seq := ord.ByClient[clientID]
		for k, spec := range specs {
			rollWindow(tbl, seq, spec.span.Duration, s.newAccumulator(tbl, spec, sources[k]), &cols[k])
		}
	})
	if err != nil {
		return nil, err
	}

	return cols, nil
}

func (s *Rolling) newAccumulator(tbl *table.Table, spec rollingSpec, src *table.Column) accumulator {
	switch spec.agg {
	case aggCount:
		return &countAcc{}
	case aggSum:
		return &sumAcc{col: src}
	case aggMean:
		return &meanAcc{col: src}
	case aggDistinct:
		return newDistinctAcc(func(row int) string { return tbl.Row(row).CampaignID })
	default:
		panic(fmt.Sprintf("unknown aggregation %q", spec.agg))
	}
}
