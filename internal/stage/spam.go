package stage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

var spamMetrics = []string{
	"is_soft_bounced",
	"is_hard_bounced",
	"is_blocked",
	"is_unsubscribed",
	"is_complained",
}

var spamSpans = []Span{Span1d, Span1w, Span1m}

// Spam computes company-wide deliverability health: rolling bounce, block,
// unsubscribe and complaint rates over the whole send stream, plus the
// derived delivery rate and the weighted spam risk index.
type Spam struct {
	params Params
	log    *zap.Logger
}

// NewSpam creates the deliverability risk stage.
func NewSpam(params Params, log *zap.Logger) *Spam {
	return &Spam{params: params, log: log}
}

func (s *Spam) Name() string { return "spam_health" }

func (s *Spam) Apply(ctx context.Context, tbl *table.Table) ([]table.Column, error) {
	n := tbl.NumRows()
	ord := tbl.Ordering()

	rates := make([]table.Column, 0, len(spamMetrics)*len(spamSpans))
	for _, metric := range spamMetrics {
		src, ok := tbl.Column(metric)
		if !ok {
			return nil, fmt.Errorf("spam stage: source column %q not computed", metric)
		}
		for _, sp := range spamSpans {
			col := table.NewColumn(fmt.Sprintf("%s_rate_%s", metric, sp.Label), n)
			rollWindow(tbl, ord.Company, sp.Duration, &meanAcc{col: src}, &col)
			rates = append(rates, col)
		}
	}
	rateCols := make(map[string]*table.Column, len(rates))
	for k := range rates {
		rateCols[rates[k].Name] = &rates[k]
	}
	out := make([]table.Column, len(rates), len(rates)+2*len(spamSpans))
	copy(out, rates)

	w := s.params.RiskWeights
	for _, sp := range spamSpans {
		soft := rateCols["is_soft_bounced_rate_"+sp.Label]
		hard := rateCols["is_hard_bounced_rate_"+sp.Label]
		blocked := rateCols["is_blocked_rate_"+sp.Label]
		unsub := rateCols["is_unsubscribed_rate_"+sp.Label]
		complained := rateCols["is_complained_rate_"+sp.Label]

		delivery := table.NewColumn("delivery_rate_"+sp.Label, n)
		risk := table.NewColumn("spam_risk_index_"+sp.Label, n)
		for i := 0; i < n; i++ {
			if !tbl.Row(i).HasSentAt() {
				continue
			}
			delivery.Set(i, 1-(soft.ValueOr(i, 0)+hard.ValueOr(i, 0)))
			risk.Set(i, w.SoftBounce*soft.ValueOr(i, 0)+
				w.HardBounce*hard.ValueOr(i, 0)+
				w.Block*blocked.ValueOr(i, 0)+
				w.Unsubscribe*unsub.ValueOr(i, 0)+
				w.Complaint*complained.ValueOr(i, 0))
		}
		out = append(out, delivery, risk)
	}

	return out, nil
}
