package stage

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/domain"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

func smoothingPipeline(t *testing.T, params Params, rows []*domain.Message) *table.Table {
	t.Helper()
	tbl := mustTable(t, rows)
	return applyStages(t, tbl,
		NewFlags(params, zap.NewNop()),
		NewSmoothing(params, zap.NewNop()))
}

func TestSmoothing_ZeroPriorTrialsIsGlobalRate(t *testing.T) {
	// Two clients, two messages, one open: global open rate is 0.5.
	// Each client's first message has zero prior trials.
	tbl := smoothingPipeline(t, DefaultParams(), []*domain.Message{
		opened(newMsg("m1", "c1", "cmp", testEpoch), time.Hour),
		newMsg("m2", "c2", "cmp", testEpoch.Add(time.Hour)),
	})

	requireValue(t, tbl, "is_opened_rate_prev_smooth", 0, 0.5)
	requireValue(t, tbl, "is_opened_rate_prev_smooth", 1, 0.5)
}

func TestSmoothing_ShrinksTowardGlobalRate(t *testing.T) {
	params := DefaultParams()
	// c1: opened, not opened, then a third message. c2 pins the global
	// rate: 4 messages total, 2 opened, global = 0.5.
	tbl := smoothingPipeline(t, params, []*domain.Message{
		opened(newMsg("m1", "c1", "cmp", testEpoch), time.Hour),
		newMsg("m2", "c1", "cmp", testEpoch.Add(24*time.Hour)),
		newMsg("m3", "c1", "cmp", testEpoch.Add(48*time.Hour)),
		opened(newMsg("m4", "c2", "cmp", testEpoch), time.Hour),
	})

	// Row m2: 1 success over 1 trial, alpha=beta=1, global 0.5:
	// (1 + 1*0.5) / (1 + 2) = 0.5.
	requireValue(t, tbl, "is_opened_rate_prev_smooth", 1, 0.5)
	// Row m3: 1 success over 2 trials: (1 + 0.5) / (2 + 2) = 0.375.
	requireValue(t, tbl, "is_opened_rate_prev_smooth", 2, 0.375)

	// The raw prior expanding rate carries no shrinkage.
	requireMissing(t, tbl, "is_opened_rate_prev_expanding", 0)
	requireValue(t, tbl, "is_opened_rate_prev_expanding", 1, 1)
	requireValue(t, tbl, "is_opened_rate_prev_expanding", 2, 0.5)
}

func TestSmoothing_CampaignQualityIsStrictlyPrior(t *testing.T) {
	tbl := smoothingPipeline(t, DefaultParams(), []*domain.Message{
		opened(newMsg("m1", "c1", "cmp_a", testEpoch), time.Hour),
		newMsg("m2", "c1", "cmp_a", testEpoch.Add(24*time.Hour)),
		newMsg("m3", "c1", "cmp_b", testEpoch.Add(48*time.Hour)),
		newMsg("m4", "c2", "cmp_a", testEpoch.Add(72*time.Hour)),
	})

	// First message in each client×campaign has no history.
	requireMissing(t, tbl, "is_opened_rate_campaign_per_client", 0)
	requireValue(t, tbl, "is_opened_rate_campaign_per_client", 1, 1)
	requireMissing(t, tbl, "is_opened_rate_campaign_per_client", 2)

	// The campaign-level rate pools clients: m4 sees m1 and m2.
	requireMissing(t, tbl, "is_opened_rate_campaign", 0)
	requireValue(t, tbl, "is_opened_rate_campaign", 1, 1)
	requireValue(t, tbl, "is_opened_rate_campaign", 3, 0.5)
}

func TestSmoothing_InconsistentRowsDoNotCount(t *testing.T) {
	bad := newMsg("m1", "c1", "cmp", testEpoch)
	before := testEpoch.Add(-time.Hour)
	bad.OpenedAt = &before

	tbl := smoothingPipeline(t, DefaultParams(), []*domain.Message{
		bad,
		opened(newMsg("m2", "c1", "cmp", testEpoch.Add(24*time.Hour)), time.Hour),
		newMsg("m3", "c1", "cmp", testEpoch.Add(48*time.Hour)),
	})

	// m1's outcome is barred, so m2 still has zero prior trials and m3
	// sees exactly one: the global rate is the mean over valid rows (1/2).
	requireValue(t, tbl, "is_opened_rate_prev_smooth", 1, 0.5)
	requireValue(t, tbl, "is_opened_rate_prev_expanding", 2, 1)
}
