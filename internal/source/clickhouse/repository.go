package clickhouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/domain"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

// Repository reads the denormalized messages table and writes computed
// feature values back. Features are stored long-form (message_id, feature,
// value) so new feature columns never require DDL.
type Repository struct {
	client *Client
	log    *zap.Logger
}

// NewRepository creates a new ClickHouse repository
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client: client,
		log:    log,
	}
}

// InitSchema creates the messages and message_features tables if they do
// not exist.
func (r *Repository) InitSchema(ctx context.Context) error {
	messages := `
	CREATE TABLE IF NOT EXISTS messages (
		message_id String,
		client_id String,
		campaign_id String,
		sent_at DateTime64(3),
		channel LowCardinality(String),
		campaign_type LowCardinality(String),
		opened_first_time_at Nullable(DateTime64(3)),
		clicked_first_time_at Nullable(DateTime64(3)),
		purchased_at Nullable(DateTime64(3)),
		soft_bounced_at Nullable(DateTime64(3)),
		hard_bounced_at Nullable(DateTime64(3)),
		blocked_at Nullable(DateTime64(3)),
		unsubscribed_at Nullable(DateTime64(3)),
		complained_at Nullable(DateTime64(3)),
		subject_length Int32,
		subject_with_personalization Bool,
		subject_with_deadline Bool,
		subject_with_emoji Bool,
		subject_with_bonuses Bool,
		subject_with_discount Bool,
		subject_with_saleout Bool,
		ab_test Bool,
		warmup_mode Bool
	) ENGINE = MergeTree()
	PRIMARY KEY (client_id, sent_at, message_id)
	ORDER BY (client_id, sent_at, message_id)
	PARTITION BY toYYYYMM(sent_at)
	SETTINGS index_granularity = 8192
	`
	if err := r.client.Conn().Exec(ctx, messages); err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}

	features := `
	CREATE TABLE IF NOT EXISTS message_features (
		message_id String,
		feature LowCardinality(String),
		value Nullable(Float64),
		computed_at DateTime64(3) DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree(computed_at)
	PRIMARY KEY (message_id, feature)
	ORDER BY (message_id, feature)
	SETTINGS index_granularity = 8192
	`
	if err := r.client.Conn().Exec(ctx, features); err != nil {
		return fmt.Errorf("failed to create message_features table: %w", err)
	}

	r.log.Info("ClickHouse schema initialized successfully")
	return nil
}

// Load reads all message rows ordered by (client_id, sent_at, message_id).
func (r *Repository) Load(ctx context.Context) ([]*domain.Message, error) {
	query := `
		SELECT
			message_id, client_id, campaign_id, sent_at, channel, campaign_type,
			opened_first_time_at, clicked_first_time_at, purchased_at,
			soft_bounced_at, hard_bounced_at, blocked_at,
			unsubscribed_at, complained_at,
			subject_length,
			subject_with_personalization, subject_with_deadline, subject_with_emoji,
			subject_with_bonuses, subject_with_discount, subject_with_saleout,
			ab_test, warmup_mode
		FROM messages
		ORDER BY (client_id, sent_at, message_id)
	`

	rows, err := r.client.Conn().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.log.Error("Failed to close message rows", zap.Error(err))
		}
	}()

	var messages []*domain.Message
	for rows.Next() {
		var (
			m             domain.Message
			subjectLength int32
		)
		if err := rows.Scan(
			&m.MessageID, &m.ClientID, &m.CampaignID, &m.SentAt, &m.Channel, &m.CampaignType,
			&m.OpenedAt, &m.ClickedAt, &m.PurchasedAt,
			&m.SoftBouncedAt, &m.HardBouncedAt, &m.BlockedAt,
			&m.UnsubscribedAt, &m.ComplainedAt,
			&subjectLength,
			&m.SubjectPersonalization, &m.SubjectDeadline, &m.SubjectEmoji,
			&m.SubjectBonuses, &m.SubjectDiscount, &m.SubjectSaleout,
			&m.ABTest, &m.WarmupMode,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.SubjectLength = int(subjectLength)
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	r.log.Info("Loaded messages from ClickHouse", zap.Int("rows", len(messages)))
	return messages, nil
}

// Write inserts every feature value for every row in batches. Missing
// values become SQL NULLs.
func (r *Repository) Write(ctx context.Context, tbl *table.Table) error {
	const batchSize = 100000

	cols := tbl.Columns()
	computedAt := time.Now()

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO message_features")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	appended := 0
	for i := 0; i < tbl.NumRows(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		messageID := tbl.Row(i).MessageID
		for k := range cols {
			var value *float64
			if v, ok := cols[k].Value(i); ok {
				value = &v
			}
			if err := batch.Append(messageID, cols[k].Name, value, computedAt); err != nil {
				return fmt.Errorf("failed to append feature to batch: %w", err)
			}
			appended++
			if appended%batchSize == 0 {
				if err := batch.Send(); err != nil {
					return fmt.Errorf("failed to send batch: %w", err)
				}
				batch, err = r.client.Conn().PrepareBatch(ctx, "INSERT INTO message_features")
				if err != nil {
					return fmt.Errorf("failed to prepare batch: %w", err)
				}
			}
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send final batch: %w", err)
	}

	r.log.Info("Wrote feature values to ClickHouse",
		zap.Int("rows", tbl.NumRows()),
		zap.Int("values", appended))
	return nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}
