package stage

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/domain"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

func gapPipeline(t *testing.T, rows []*domain.Message) *table.Table {
	t.Helper()
	tbl := mustTable(t, rows)
	params := DefaultParams()
	return applyStages(t, tbl,
		NewFlags(params, zap.NewNop()),
		NewLag(params, zap.NewNop()),
		NewSmoothing(params, zap.NewNop()),
		NewMarket(params, zap.NewNop()),
		NewGap(params, zap.NewNop()))
}

func TestGap_RateMinusBaseline(t *testing.T) {
	// c9 pins the global rate and the market series; c1's third message
	// is the probe.
	tbl := gapPipeline(t, []*domain.Message{
		opened(newMsg("a1", "c9", "cmp", testEpoch), time.Minute),
		newMsg("a2", "c9", "cmp", testEpoch.Add(time.Hour)),
		opened(newMsg("m1", "c1", "cmp", testEpoch), time.Minute),
		newMsg("m2", "c1", "cmp", testEpoch.Add(24*time.Hour)),
		newMsg("m3", "c1", "cmp", testEpoch.Add(48*time.Hour)),
	})

	// For m3: the rolling week rate over shifted outcomes is 1 (m2 carries
	// m1's open), the smoothed baseline is (1 + 0.4) / (2 + 2) = 0.35 with
	// a global open rate of 2/5.
	requireValue(t, tbl, "is_opened_rate_1w", 4, 1)
	requireValue(t, tbl, "is_opened_rate_prev_smooth", 4, 0.35)
	requireValue(t, tbl, "is_opened_expect_gap_1w", 4, 0.65)
	requireValue(t, tbl, "is_opened_expect_gap_1m", 4, 0.65)

	// The overall gap uses the raw prior expanding rate: (1+0)/2 - 0.35.
	requireValue(t, tbl, "is_opened_expect_gap_overall", 4, 0.15)

	// m2's rolling rate is undefined (only a shifted-missing row in its
	// window), so its gaps stay missing.
	requireMissing(t, tbl, "is_opened_expect_gap_1w", 3)
	requireMissing(t, tbl, "open_deviation_1w", 3)
}

func TestGap_MarketDeviation(t *testing.T) {
	tbl := gapPipeline(t, []*domain.Message{
		opened(newMsg("a1", "c9", "cmp", testEpoch), time.Minute),
		newMsg("a2", "c9", "cmp", testEpoch.Add(time.Hour)),
		opened(newMsg("m1", "c1", "cmp", testEpoch), time.Minute),
		newMsg("m2", "c1", "cmp", testEpoch.Add(24*time.Hour)),
		newMsg("m3", "c1", "cmp", testEpoch.Add(48*time.Hour)),
	})

	// m3 joins hour bucket 47; the trailing week of hourly open rates is
	// 1.0 at hour 0 and 0 in the 46 quiet or unopened hours, so the
	// global rate is 1/47 and the client rate is 1.
	g := 1.0 / 47.0
	requireValue(t, tbl, "global_is_opened_rate_1w", 4, g)
	requireValue(t, tbl, "open_deviation_1w", 4, (1-g)/g)
	requireValue(t, tbl, "open_deviation_1m", 4, (1-g)/g)
}

func TestGap_DeviationMissingWhenMarketRateZero(t *testing.T) {
	// Nobody opens anything: the global rate is a defined zero, and the
	// relative deviation is missing rather than a division fault.
	tbl := gapPipeline(t, []*domain.Message{
		newMsg("m1", "c1", "cmp", testEpoch),
		newMsg("m2", "c1", "cmp", testEpoch.Add(24*time.Hour)),
		newMsg("m3", "c1", "cmp", testEpoch.Add(48*time.Hour)),
	})

	requireValue(t, tbl, "is_opened_rate_1w", 2, 0)
	requireValue(t, tbl, "global_is_opened_rate_1w", 2, 0)
	requireMissing(t, tbl, "open_deviation_1w", 2)
}

func TestGap_OverallMissingWithoutClientHistory(t *testing.T) {
	tbl := gapPipeline(t, []*domain.Message{
		newMsg("m1", "c1", "cmp", testEpoch),
		newMsg("m2", "c1", "cmp", testEpoch.Add(24*time.Hour)),
	})

	// The smoothed baseline is defined from the first message, but the
	// expanding rate needs at least one prior outcome.
	requireMissing(t, tbl, "is_opened_expect_gap_overall", 0)
	// With no opens at all both the expanding rate and the baseline are 0.
	requireValue(t, tbl, "is_opened_expect_gap_overall", 1, 0)
}
