package domain

import "time"

// Message represents a single sent marketing message as stored in ClickHouse.
// SentAt is required; the zero value marks a row with no usable send
// timestamp. Outcome timestamps are nil when the outcome never happened.
type Message struct {
	MessageID    string    `ch:"message_id"`
	ClientID     string    `ch:"client_id"`
	CampaignID   string    `ch:"campaign_id"`
	SentAt       time.Time `ch:"sent_at"`
	Channel      string    `ch:"channel"`
	CampaignType string    `ch:"campaign_type"`

	OpenedAt       *time.Time `ch:"opened_first_time_at"`
	ClickedAt      *time.Time `ch:"clicked_first_time_at"`
	PurchasedAt    *time.Time `ch:"purchased_at"`
	SoftBouncedAt  *time.Time `ch:"soft_bounced_at"`
	HardBouncedAt  *time.Time `ch:"hard_bounced_at"`
	BlockedAt      *time.Time `ch:"blocked_at"`
	UnsubscribedAt *time.Time `ch:"unsubscribed_at"`
	ComplainedAt   *time.Time `ch:"complained_at"`

	SubjectLength          int  `ch:"subject_length"`
	SubjectPersonalization bool `ch:"subject_with_personalization"`
	SubjectDeadline        bool `ch:"subject_with_deadline"`
	SubjectEmoji           bool `ch:"subject_with_emoji"`
	SubjectBonuses         bool `ch:"subject_with_bonuses"`
	SubjectDiscount        bool `ch:"subject_with_discount"`
	SubjectSaleout         bool `ch:"subject_with_saleout"`

	ABTest     bool `ch:"ab_test"`
	WarmupMode bool `ch:"warmup_mode"`
}

// HasSentAt reports whether the message carries a usable send timestamp.
func (m *Message) HasSentAt() bool {
	return !m.SentAt.IsZero()
}

// Opened reports whether the message was opened. The boolean outcome flags
// are derived from timestamp presence so the flag/timestamp pairing
// invariant holds by construction.
func (m *Message) Opened() bool { return m.OpenedAt != nil }

// Clicked reports whether the message was clicked.
func (m *Message) Clicked() bool { return m.ClickedAt != nil }

// Purchased reports whether the message led to a purchase.
func (m *Message) Purchased() bool { return m.PurchasedAt != nil }

// SoftBounced reports whether the message soft-bounced.
func (m *Message) SoftBounced() bool { return m.SoftBouncedAt != nil }

// HardBounced reports whether the message hard-bounced.
func (m *Message) HardBounced() bool { return m.HardBouncedAt != nil }

// Blocked reports whether the message was blocked.
func (m *Message) Blocked() bool { return m.BlockedAt != nil }

// Unsubscribed reports whether the message triggered an unsubscribe.
func (m *Message) Unsubscribed() bool { return m.UnsubscribedAt != nil }

// Complained reports whether the message triggered a spam complaint.
func (m *Message) Complained() bool { return m.ComplainedAt != nil }

// OutcomeTimestamps returns the outcome timestamps paired with the field
// names used in validation reports.
func (m *Message) OutcomeTimestamps() map[string]*time.Time {
	return map[string]*time.Time{
		"opened_first_time_at":  m.OpenedAt,
		"clicked_first_time_at": m.ClickedAt,
		"purchased_at":          m.PurchasedAt,
		"soft_bounced_at":       m.SoftBouncedAt,
		"hard_bounced_at":       m.HardBouncedAt,
		"blocked_at":            m.BlockedAt,
		"unsubscribed_at":       m.UnsubscribedAt,
		"complained_at":         m.ComplainedAt,
	}
}
