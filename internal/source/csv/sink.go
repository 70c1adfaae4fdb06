package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

// Sink writes the augmented table to a CSV file: identity and time columns
// first, then every feature column in pipeline order. Missing feature
// values are rendered as empty cells.
type Sink struct {
	path string
	log  *zap.Logger
}

// NewSink creates a CSV table sink.
func NewSink(path string, log *zap.Logger) *Sink {
	return &Sink{path: path, log: log}
}

// Write renders the table. The raw outcome timestamps are not repeated in
// the output; the flag layer already carries them as feature columns.
func (s *Sink) Write(ctx context.Context, tbl *table.Table) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	cols := tbl.Columns()
	header := []string{"message_id", "client_id", "campaign_id", "sent_at", "channel", "campaign_type"}
	for _, c := range cols {
		header = append(header, c.Name)
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(header))
	for i := 0; i < tbl.NumRows(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		m := tbl.Row(i)
		record[0] = m.MessageID
		record[1] = m.ClientID
		record[2] = m.CampaignID
		if m.HasSentAt() {
			record[3] = m.SentAt.Format(time.RFC3339)
		} else {
			record[3] = ""
		}
		record[4] = m.Channel
		record[5] = m.CampaignType
		for k := range cols {
			if v, ok := cols[k].Value(i); ok {
				record[6+k] = strconv.FormatFloat(v, 'g', -1, 64)
			} else {
				record[6+k] = ""
			}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	s.log.Info("wrote augmented table",
		zap.String("path", s.path),
		zap.Int("rows", tbl.NumRows()),
		zap.Int("feature_columns", len(cols)))

	return nil
}
