package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/domain"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

// requiredColumns are the columns a usable event table cannot do without.
// Everything else is optional and defaults to its zero value.
var requiredColumns = []string{"message_id", "client_id", "campaign_id", "sent_at", "channel", "campaign_type"}

var timestampColumns = []string{
	"opened_first_time_at", "clicked_first_time_at", "purchased_at",
	"soft_bounced_at", "hard_bounced_at", "blocked_at",
	"unsubscribed_at", "complained_at",
}

var boolColumns = []string{
	"subject_with_personalization", "subject_with_deadline", "subject_with_emoji",
	"subject_with_bonuses", "subject_with_discount", "subject_with_saleout",
	"ab_test", "warmup_mode",
}

// Source reads the event table from a CSV file with an RFC3339 timestamp
// format. An empty cell is a null.
type Source struct {
	path string
	log  *zap.Logger
}

// NewSource creates a CSV table source.
func NewSource(path string, log *zap.Logger) *Source {
	return &Source{path: path, log: log}
}

// Load reads and parses every row. A missing required header is a fatal
// schema error, not a silent default.
func (s *Source) Load(ctx context.Context) ([]*domain.Message, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := idx[name]; !ok {
			return nil, &table.SchemaError{Column: name, Reason: "required column missing from header"}
		}
	}

	var rows []*domain.Message
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record at line %d: %w", line+1, err)
		}
		line++

		field := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}

		m := &domain.Message{
			MessageID:    field("message_id"),
			ClientID:     field("client_id"),
			CampaignID:   field("campaign_id"),
			Channel:      field("channel"),
			CampaignType: field("campaign_type"),
		}

		if raw := field("sent_at"); raw != "" {
			ts, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, &table.SchemaError{Column: "sent_at", Reason: fmt.Sprintf("unparseable value %q at line %d", raw, line)}
			}
			m.SentAt = ts
		}

		for _, name := range timestampColumns {
			raw := field(name)
			if raw == "" {
				continue
			}
			ts, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, &table.SchemaError{Column: name, Reason: fmt.Sprintf("unparseable value %q at line %d", raw, line)}
			}
			setOutcome(m, name, ts)
		}

		if raw := field("subject_length"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 0 {
				return nil, &table.SchemaError{Column: "subject_length", Reason: fmt.Sprintf("invalid value %q at line %d", raw, line)}
			}
			m.SubjectLength = v
		}

		for _, name := range boolColumns {
			setBool(m, name, parseBool(field(name)))
		}

		rows = append(rows, m)
	}

	s.log.Info("loaded event table",
		zap.String("path", s.path),
		zap.Int("rows", len(rows)))

	return rows, nil
}

func parseBool(raw string) bool {
	switch raw {
	case "1", "true", "True", "TRUE", "t", "yes":
		return true
	}
	return false
}

func setOutcome(m *domain.Message, column string, ts time.Time) {
	t := ts
	switch column {
	case "opened_first_time_at":
		m.OpenedAt = &t
	case "clicked_first_time_at":
		m.ClickedAt = &t
	case "purchased_at":
		m.PurchasedAt = &t
	case "soft_bounced_at":
		m.SoftBouncedAt = &t
	case "hard_bounced_at":
		m.HardBouncedAt = &t
	case "blocked_at":
		m.BlockedAt = &t
	case "unsubscribed_at":
		m.UnsubscribedAt = &t
	case "complained_at":
		m.ComplainedAt = &t
	}
}

func setBool(m *domain.Message, column string, v bool) {
	switch column {
	case "subject_with_personalization":
		m.SubjectPersonalization = v
	case "subject_with_deadline":
		m.SubjectDeadline = v
	case "subject_with_emoji":
		m.SubjectEmoji = v
	case "subject_with_bonuses":
		m.SubjectBonuses = v
	case "subject_with_discount":
		m.SubjectDiscount = v
	case "subject_with_saleout":
		m.SubjectSaleout = v
	case "ab_test":
		m.ABTest = v
	case "warmup_mode":
		m.WarmupMode = v
	}
}
