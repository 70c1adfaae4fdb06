package table

import "sort"

// GroupKey identifies a client×campaign grouping.
type GroupKey struct {
	ClientID   string
	CampaignID string
}

// Ordering holds the time-ordered row sequences every rolling and lag
// computation walks. Within each group, rows are sorted ascending by
// (sent_at, message_id); the message_id tiebreak keeps the order stable
// between runs. Rows without a send timestamp are excluded from every
// sequence.
type Ordering struct {
	ByClient         map[string][]int
	ByClientCampaign map[GroupKey][]int
	ByCampaign       map[string][]int
	Company          []int
}

func buildOrdering(t *Table) *Ordering {
	ord := &Ordering{
		ByClient:         make(map[string][]int),
		ByClientCampaign: make(map[GroupKey][]int),
		ByCampaign:       make(map[string][]int),
	}

	for i, m := range t.rows {
		if !m.HasSentAt() {
			continue
		}
		ord.ByClient[m.ClientID] = append(ord.ByClient[m.ClientID], i)
		key := GroupKey{ClientID: m.ClientID, CampaignID: m.CampaignID}
		ord.ByClientCampaign[key] = append(ord.ByClientCampaign[key], i)
		ord.ByCampaign[m.CampaignID] = append(ord.ByCampaign[m.CampaignID], i)
		ord.Company = append(ord.Company, i)
	}

	sortSeq := func(seq []int) {
		sort.SliceStable(seq, func(a, b int) bool {
			ra, rb := t.rows[seq[a]], t.rows[seq[b]]
			if !ra.SentAt.Equal(rb.SentAt) {
				return ra.SentAt.Before(rb.SentAt)
			}
			return ra.MessageID < rb.MessageID
		})
	}

	for _, seq := range ord.ByClient {
		sortSeq(seq)
	}
	for _, seq := range ord.ByClientCampaign {
		sortSeq(seq)
	}
	for _, seq := range ord.ByCampaign {
		sortSeq(seq)
	}
	sortSeq(ord.Company)

	return ord
}

// ClientIDs returns the sorted client keys, giving a deterministic
// partition order for parallel stages.
func (o *Ordering) ClientIDs() []string {
	ids := make([]string, 0, len(o.ByClient))
	for id := range o.ByClient {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CampaignIDs returns the sorted campaign keys.
func (o *Ordering) CampaignIDs() []string {
	ids := make([]string, 0, len(o.ByCampaign))
	for id := range o.ByCampaign {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ClientCampaignKeys returns the sorted client×campaign keys.
func (o *Ordering) ClientCampaignKeys() []GroupKey {
	keys := make([]GroupKey, 0, len(o.ByClientCampaign))
	for k := range o.ByClientCampaign {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].ClientID != keys[b].ClientID {
			return keys[a].ClientID < keys[b].ClientID
		}
		return keys[a].CampaignID < keys[b].CampaignID
	})
	return keys
}
