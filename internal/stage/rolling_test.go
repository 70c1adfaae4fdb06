package stage

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/domain"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

func rollingPipeline(t *testing.T, rows []*domain.Message) *table.Table {
	t.Helper()
	tbl := mustTable(t, rows)
	return applyStages(t, tbl,
		NewFlags(DefaultParams(), zap.NewNop()),
		NewRolling(DefaultParams(), zap.NewNop()))
}

func TestRolling_FirstMessageHasEmptyWindow(t *testing.T) {
	tbl := rollingPipeline(t, []*domain.Message{
		opened(newMsg("m1", "c1", "cmp", testEpoch), time.Hour),
	})

	// Counts and sums observe zero; means and distinct counts are missing.
	requireValue(t, tbl, "sent_count_1d", 0, 0)
	requireValue(t, tbl, "sent_count_1w", 0, 0)
	requireValue(t, tbl, "sent_count_1m", 0, 0)
	requireValue(t, tbl, "sent_count_email_1w", 0, 0)
	requireValue(t, tbl, "bulk_count_1m", 0, 0)
	requireMissing(t, tbl, "avg_subject_len_1d", 0)
	requireMissing(t, tbl, "working_hours_ratio_1w", 0)
	requireMissing(t, tbl, "unique_campaigns_1m", 0)
}

func TestRolling_SameInstantSiblingsExcluded(t *testing.T) {
	tbl := rollingPipeline(t, []*domain.Message{
		newMsg("m1", "c1", "cmp", testEpoch),
		newMsg("m2", "c1", "cmp", testEpoch),
	})

	// The window is open at t, so rows at the exact same instant never
	// count each other.
	requireValue(t, tbl, "sent_count_1d", 0, 0)
	requireValue(t, tbl, "sent_count_1d", 1, 0)
	requireMissing(t, tbl, "unique_campaigns_1d", 0)
	requireMissing(t, tbl, "unique_campaigns_1d", 1)
}

func TestRolling_LeftBoundaryIsClosed(t *testing.T) {
	tbl := rollingPipeline(t, []*domain.Message{
		newMsg("m1", "c1", "cmp", testEpoch),
		newMsg("m2", "c1", "cmp", testEpoch.Add(24*time.Hour)),
	})

	// m1 sits exactly at t-24h and is still inside the 1d window.
	requireValue(t, tbl, "sent_count_1d", 1, 1)
}

func TestRolling_TrailingWeekScenario(t *testing.T) {
	// Three messages to one client at t=0, t=1d, t=8d, all opened.
	tbl := rollingPipeline(t, []*domain.Message{
		opened(newMsg("m1", "c1", "cmp_a", testEpoch), time.Hour),
		opened(newMsg("m2", "c1", "cmp_a", testEpoch.Add(24*time.Hour)), time.Hour),
		opened(newMsg("m3", "c1", "cmp_b", testEpoch.Add(8*24*time.Hour)), time.Hour),
	})

	// Only the t=1d message falls inside (t-7d, t) at t=8d.
	requireValue(t, tbl, "sent_count_1w", 2, 1)
	requireValue(t, tbl, "sent_count_1m", 2, 2)
	requireValue(t, tbl, "unique_campaigns_1w", 2, 1)
	requireValue(t, tbl, "unique_campaigns_1m", 2, 1)
}

func TestRolling_ClientsDoNotShareWindows(t *testing.T) {
	tbl := rollingPipeline(t, []*domain.Message{
		newMsg("m1", "c1", "cmp", testEpoch),
		newMsg("m2", "c2", "cmp", testEpoch.Add(time.Hour)),
	})

	requireValue(t, tbl, "sent_count_1d", 1, 0)
}

func TestRolling_ChannelSubsetCounts(t *testing.T) {
	push := newMsg("m2", "c1", "cmp", testEpoch.Add(time.Hour))
	push.Channel = "push"
	tbl := rollingPipeline(t, []*domain.Message{
		newMsg("m1", "c1", "cmp", testEpoch),
		push,
		newMsg("m3", "c1", "cmp", testEpoch.Add(2*time.Hour)),
	})

	requireValue(t, tbl, "sent_count_1d", 2, 2)
	requireValue(t, tbl, "sent_count_email_1d", 2, 1)
	requireValue(t, tbl, "sent_count_push_1d", 2, 1)
}

func TestRolling_AvgIntervalSkipsMissingGaps(t *testing.T) {
	tbl := rollingPipeline(t, []*domain.Message{
		newMsg("m1", "c1", "cmp", testEpoch),
		newMsg("m2", "c1", "cmp", testEpoch.Add(12*time.Hour)),
		newMsg("m3", "c1", "cmp", testEpoch.Add(36*time.Hour)),
	})

	// m3's window holds m1 (gap missing) and m2 (gap 0.5d); the mean only
	// covers the present observation.
	requireValue(t, tbl, "avg_interval_1w", 2, 0.5)
	// m2's window holds only m1, whose gap is missing.
	requireMissing(t, tbl, "avg_interval_1w", 1)
}

func TestRolling_NullSentRowAllMissing(t *testing.T) {
	tbl := rollingPipeline(t, []*domain.Message{
		newMsg("m1", "c1", "cmp", testEpoch),
		newMsg("m2", "c1", "cmp", time.Time{}),
	})

	// Not zero: the row is outside temporal aggregation entirely.
	requireMissing(t, tbl, "sent_count_1d", 1)
	requireMissing(t, tbl, "avg_subject_len_1w", 1)
}
