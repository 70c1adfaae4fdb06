package stage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/domain"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

var testEpoch = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC) // a Monday, 10:00

func newMsg(id, client, campaign string, sentAt time.Time) *domain.Message {
	return &domain.Message{
		MessageID:    id,
		ClientID:     client,
		CampaignID:   campaign,
		SentAt:       sentAt,
		Channel:      "email",
		CampaignType: "bulk",
	}
}

func opened(m *domain.Message, after time.Duration) *domain.Message {
	ts := m.SentAt.Add(after)
	m.OpenedAt = &ts
	return m
}

func clicked(m *domain.Message, after time.Duration) *domain.Message {
	ts := m.SentAt.Add(after)
	m.ClickedAt = &ts
	return m
}

func mustTable(t *testing.T, rows []*domain.Message) *table.Table {
	t.Helper()
	tbl, err := table.New(rows)
	require.NoError(t, err)
	return tbl
}

// applyStages runs the given stages in order, appending columns after each,
// and returns the final table.
func applyStages(t *testing.T, tbl *table.Table, stages ...Stage) *table.Table {
	t.Helper()
	for _, st := range stages {
		cols, err := st.Apply(context.Background(), tbl)
		require.NoError(t, err, "stage %s", st.Name())
		tbl, err = tbl.WithColumns(cols...)
		require.NoError(t, err, "stage %s", st.Name())
	}
	return tbl
}

func requireMissing(t *testing.T, tbl *table.Table, name string, row int) {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok, "column %s not found", name)
	_, present := col.Value(row)
	require.False(t, present, "column %s row %d: expected missing", name, row)
}

func requireValue(t *testing.T, tbl *table.Table, name string, row int, want float64) {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok, "column %s not found", name)
	v, present := col.Value(row)
	require.True(t, present, "column %s row %d: expected present", name, row)
	require.InDelta(t, want, v, 1e-9, "column %s row %d", name, row)
}
