package stage

import (
	"context"

	"go.uber.org/zap"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

// Flags computes every row-local derived column: calendar components,
// hour-band indicators, channel and campaign-type indicators, subject
// content flags, outcome flags, capped time-to-action, and the per-client
// send gaps. It runs first because the rolling stages aggregate its output.
type Flags struct {
	params Params
	log    *zap.Logger
}

// NewFlags creates the derived flag stage.
func NewFlags(params Params, log *zap.Logger) *Flags {
	return &Flags{params: params, log: log}
}

func (s *Flags) Name() string { return "derived_flags" }

// Apply computes the flag columns. Calendar and gap columns are missing for
// rows without a send timestamp; outcome flags are missing for rows whose
// outcome timestamps failed temporal validation, so they never contribute
// outcome values downstream.
func (s *Flags) Apply(ctx context.Context, tbl *table.Table) ([]table.Column, error) {
	n := tbl.NumRows()

	hour := table.NewColumn("hour", n)
	weekday := table.NewColumn("weekday", n)
	dayOfMonth := table.NewColumn("day_of_month", n)
	month := table.NewColumn("month", n)
	quarter := table.NewColumn("quarter", n)

	isWeekend := table.NewColumn("is_weekend", n)
	isWorkingHours := table.NewColumn("is_working_hours", n)
	isMorning := table.NewColumn("is_morning", n)
	isAfternoon := table.NewColumn("is_afternoon", n)
	isEvening := table.NewColumn("is_evening", n)
	isNight := table.NewColumn("is_night", n)

	for i := 0; i < n; i++ {
		m := tbl.Row(i)
		if !m.HasSentAt() {
			continue
		}
		h := m.SentAt.Hour()
		// Monday = 0 so the weekend check is weekday >= 5.
		wd := (int(m.SentAt.Weekday()) + 6) % 7

		hour.Set(i, float64(h))
		weekday.Set(i, float64(wd))
		dayOfMonth.Set(i, float64(m.SentAt.Day()))
		month.Set(i, float64(m.SentAt.Month()))
		quarter.Set(i, float64((int(m.SentAt.Month())-1)/3+1))

		isWeekend.Set(i, boolFlag(wd >= 5))
		isWorkingHours.Set(i, boolFlag(h >= 9 && h < 18))
		isMorning.Set(i, boolFlag(h >= 6 && h < 12))
		isAfternoon.Set(i, boolFlag(h >= 12 && h < 18))
		isEvening.Set(i, boolFlag(h >= 18 && h < 23))
		isNight.Set(i, boolFlag(h >= 23 || h < 6))
	}

	isEmail := table.BoolColumn("is_email", n, func(i int) bool { return tbl.Row(i).Channel == "email" })
	isPush := table.BoolColumn("is_push", n, func(i int) bool { return tbl.Row(i).Channel == "push" })
	isBulk := table.BoolColumn("is_bulk", n, func(i int) bool { return tbl.Row(i).CampaignType == "bulk" })
	isTriggered := table.BoolColumn("is_triggered", n, func(i int) bool { return tbl.Row(i).CampaignType == "triggered" })
	isTransactional := table.BoolColumn("is_transactional", n, func(i int) bool { return tbl.Row(i).CampaignType == "transactional" })

	subjectLength := table.NewColumn("subject_length", n)
	for i := 0; i < n; i++ {
		subjectLength.Set(i, float64(tbl.Row(i).SubjectLength))
	}
	subjPersonalization := table.BoolColumn("subject_with_personalization", n, func(i int) bool { return tbl.Row(i).SubjectPersonalization })
	subjDeadline := table.BoolColumn("subject_with_deadline", n, func(i int) bool { return tbl.Row(i).SubjectDeadline })
	subjEmoji := table.BoolColumn("subject_with_emoji", n, func(i int) bool { return tbl.Row(i).SubjectEmoji })
	subjBonuses := table.BoolColumn("subject_with_bonuses", n, func(i int) bool { return tbl.Row(i).SubjectBonuses })
	subjDiscount := table.BoolColumn("subject_with_discount", n, func(i int) bool { return tbl.Row(i).SubjectDiscount })
	subjSaleout := table.BoolColumn("subject_with_saleout", n, func(i int) bool { return tbl.Row(i).SubjectSaleout })
	abTest := table.BoolColumn("ab_test", n, func(i int) bool { return tbl.Row(i).ABTest })
	warmupMode := table.BoolColumn("warmup_mode", n, func(i int) bool { return tbl.Row(i).WarmupMode })

	outcomeCols := []struct {
		name string
		flag func(i int) bool
	}{
		{"is_opened", func(i int) bool { return tbl.Row(i).Opened() }},
		{"is_clicked", func(i int) bool { return tbl.Row(i).Clicked() }},
		{"is_purchased", func(i int) bool { return tbl.Row(i).Purchased() }},
		{"is_soft_bounced", func(i int) bool { return tbl.Row(i).SoftBounced() }},
		{"is_hard_bounced", func(i int) bool { return tbl.Row(i).HardBounced() }},
		{"is_blocked", func(i int) bool { return tbl.Row(i).Blocked() }},
		{"is_unsubscribed", func(i int) bool { return tbl.Row(i).Unsubscribed() }},
		{"is_complained", func(i int) bool { return tbl.Row(i).Complained() }},
	}
	outcomes := make([]table.Column, 0, len(outcomeCols))
	for _, oc := range outcomeCols {
		col := table.NewColumn(oc.name, n)
		for i := 0; i < n; i++ {
			if tbl.OutcomeValid(i) {
				col.Set(i, boolFlag(oc.flag(i)))
			}
		}
		outcomes = append(outcomes, col)
	}

	timeToOpen := s.timeToActionColumn(tbl, "time_to_open_hours", func(i int) (ok bool, hours float64) {
		m := tbl.Row(i)
		if m.OpenedAt == nil {
			return false, 0
		}
		return true, m.OpenedAt.Sub(m.SentAt).Hours()
	})
	timeToClick := s.timeToActionColumn(tbl, "time_to_click_hours", func(i int) (ok bool, hours float64) {
		m := tbl.Row(i)
		if m.ClickedAt == nil {
			return false, 0
		}
		return true, m.ClickedAt.Sub(m.SentAt).Hours()
	})

	daysSinceLast := table.NewColumn("days_since_last_msg", n)
	daysSinceLastEmail := table.NewColumn("days_since_last_email", n)
	daysSinceLastPush := table.NewColumn("days_since_last_push", n)
	position := table.NewColumn("msg_position_in_campaign", n)

	ord := tbl.Ordering()
	err := forEachKey(ctx, ord.ClientIDs(), s.params.Workers, func(clientID string) {
		seq := ord.ByClient[clientID]
		lastByChannel := make(map[string]int)
		for pos, i := range seq {
			if pos > 0 {
				prev := seq[pos-1]
				gap := tbl.Row(i).SentAt.Sub(tbl.Row(prev).SentAt)
				daysSinceLast.Set(i, gap.Hours()/24)
			}
			ch := tbl.Row(i).Channel
			if prev, ok := lastByChannel[ch]; ok {
				gap := tbl.Row(i).SentAt.Sub(tbl.Row(prev).SentAt)
				switch ch {
				case "email":
					daysSinceLastEmail.Set(i, gap.Hours()/24)
				case "push":
					daysSinceLastPush.Set(i, gap.Hours()/24)
				}
			}
			lastByChannel[ch] = i
		}
	})
	if err != nil {
		return nil, err
	}

	err = forEachKey(ctx, ord.ClientCampaignKeys(), s.params.Workers, func(key table.GroupKey) {
		for pos, i := range ord.ByClientCampaign[key] {
			position.Set(i, float64(pos+1))
		}
	})
	if err != nil {
		return nil, err
	}

	cols := []table.Column{
		hour, weekday, dayOfMonth, month, quarter,
		isWeekend, isWorkingHours, isMorning, isAfternoon, isEvening, isNight,
		isEmail, isPush, isBulk, isTriggered, isTransactional,
		subjectLength, subjPersonalization, subjDeadline, subjEmoji,
		subjBonuses, subjDiscount, subjSaleout, abTest, warmupMode,
	}
	cols = append(cols, outcomes...)
	cols = append(cols, timeToOpen, timeToClick,
		daysSinceLast, daysSinceLastEmail, daysSinceLastPush, position)
	return cols, nil
}

// timeToActionColumn derives hours from send to an outcome, missing when the
// outcome never happened, the row failed temporal validation, or the value
// exceeds the configured cap.
func (s *Flags) timeToActionColumn(tbl *table.Table, name string, hours func(i int) (bool, float64)) table.Column {
	col := table.NewColumn(name, tbl.NumRows())
	for i := 0; i < tbl.NumRows(); i++ {
		if !tbl.Row(i).HasSentAt() || !tbl.OutcomeValid(i) {
			continue
		}
		ok, h := hours(i)
		if !ok || h > s.params.TimeToActionCapHours {
			continue
		}
		col.Set(i, h)
	}
	return col
}

func boolFlag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
