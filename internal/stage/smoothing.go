package stage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

// Smoothing computes Bayesian-shrunk engagement rates plus the strictly
// prior expanding rates they shrink from, per client, per client×campaign,
// and per campaign. Prior counts only ever cover rows before the current
// one in the entity's time order.
type Smoothing struct {
	params Params
	log    *zap.Logger
}

// NewSmoothing creates the Bayesian smoothing stage.
func NewSmoothing(params Params, log *zap.Logger) *Smoothing {
	return &Smoothing{params: params, log: log}
}

func (s *Smoothing) Name() string { return "bayesian_smoothing" }

// shrink blends a sparse prior rate toward the global rate. With zero prior
// trials the estimate is exactly the global rate.
func (s *Smoothing) shrink(successes, trials, globalRate float64) float64 {
	if trials == 0 {
		return globalRate
	}
	return (successes + s.params.SmoothingAlpha*globalRate) /
		(trials + s.params.SmoothingAlpha + s.params.SmoothingBeta)
}

func (s *Smoothing) Apply(ctx context.Context, tbl *table.Table) ([]table.Column, error) {
	n := tbl.NumRows()
	ord := tbl.Ordering()

	srcs := make([]*table.Column, len(lagRateMetrics))
	for k, metric := range lagRateMetrics {
		src, ok := tbl.Column(metric)
		if !ok {
			return nil, fmt.Errorf("smoothing source column %q not computed", metric)
		}
		srcs[k] = src
	}

	// All-time, all-entity observed rate per outcome; an explicit constant
	// for the run, not ambient state.
	globalRates := make([]float64, len(lagRateMetrics))
	for k, src := range srcs {
		var sum, cnt float64
		for _, i := range ord.Company {
			if v, ok := src.Value(i); ok {
				sum += v
				cnt++
			}
		}
		if cnt > 0 {
			globalRates[k] = sum / cnt
		}
		s.log.Debug("global outcome rate",
			zap.String("metric", lagRateMetrics[k]),
			zap.Float64("rate", globalRates[k]))
	}

	smoothCols := make([]table.Column, len(lagRateMetrics))
	expandCols := make([]table.Column, len(lagRateMetrics))
	perClientCampaign := make([]table.Column, len(lagRateMetrics))
	perCampaign := make([]table.Column, len(lagRateMetrics))
	for k, metric := range lagRateMetrics {
		smoothCols[k] = table.NewColumn(metric+"_rate_prev_smooth", n)
		expandCols[k] = table.NewColumn(metric+"_rate_prev_expanding", n)
		perClientCampaign[k] = table.NewColumn(metric+"_rate_campaign_per_client", n)
		perCampaign[k] = table.NewColumn(metric+"_rate_campaign", n)
	}

	err := forEachKey(ctx, ord.ClientIDs(), s.params.Workers, func(clientID string) {
		seq := ord.ByClient[clientID]
		for k, src := range srcs {
			var successes, trials float64
			for _, i := range seq {
				smoothCols[k].Set(i, s.shrink(successes, trials, globalRates[k]))
				if trials > 0 {
					expandCols[k].Set(i, successes/trials)
				}
				if v, ok := src.Value(i); ok {
					successes += v
					trials++
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}

	err = forEachKey(ctx, ord.ClientCampaignKeys(), s.params.Workers, func(key table.GroupKey) {
		expandingPriorMean(ord.ByClientCampaign[key], srcs, perClientCampaign)
	})
	if err != nil {
		return nil, err
	}

	err = forEachKey(ctx, ord.CampaignIDs(), s.params.Workers, func(campaignID string) {
		expandingPriorMean(ord.ByCampaign[campaignID], srcs, perCampaign)
	})
	if err != nil {
		return nil, err
	}

	cols := make([]table.Column, 0, 4*len(lagRateMetrics))
	cols = append(cols, smoothCols...)
	cols = append(cols, expandCols...)
	cols = append(cols, perClientCampaign...)
	cols = append(cols, perCampaign...)
	return cols, nil
}

// expandingPriorMean writes, for each row in seq, the mean of the source
// values strictly before it. No prior observations means missing.
func expandingPriorMean(seq []int, srcs []*table.Column, outs []table.Column) {
	for k, src := range srcs {
		var sum, cnt float64
		for _, i := range seq {
			if cnt > 0 {
				outs[k].Set(i, sum/cnt)
			}
			if v, ok := src.Value(i); ok {
				sum += v
				cnt++
			}
		}
	}
}
