package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/domain"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

func TestDescribe(t *testing.T) {
	sent := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	rows := []*domain.Message{
		{MessageID: "m1", ClientID: "c1", CampaignID: "cmp", SentAt: sent, Channel: "email", CampaignType: "bulk"},
		{MessageID: "m2", ClientID: "c1", CampaignID: "cmp", SentAt: sent.Add(time.Hour), Channel: "email", CampaignType: "bulk"},
		{MessageID: "m3", ClientID: "c1", CampaignID: "cmp", SentAt: sent.Add(2 * time.Hour), Channel: "email", CampaignType: "bulk"},
	}
	tbl, err := table.New(rows)
	require.NoError(t, err)

	mixed := table.NewColumn("mixed", 3)
	mixed.Set(0, 2)
	mixed.Set(2, 6)
	empty := table.NewColumn("all_missing", 3)
	tbl, err = tbl.WithColumns(mixed, empty)
	require.NoError(t, err)

	summaries, err := Describe(tbl)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	m := summaries[0]
	assert.Equal(t, "mixed", m.Name)
	assert.Equal(t, 2, m.Present)
	assert.Equal(t, 1, m.Missing)
	assert.InDelta(t, 4, m.Mean, 1e-9)
	assert.InDelta(t, 4, m.Median, 1e-9)
	assert.InDelta(t, 2, m.Min, 1e-9)
	assert.InDelta(t, 6, m.Max, 1e-9)

	// A fully missing column summarizes to zero counts, not an error.
	e := summaries[1]
	assert.Equal(t, 0, e.Present)
	assert.Equal(t, 3, e.Missing)
}
