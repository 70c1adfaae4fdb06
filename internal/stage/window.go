package stage

import (
	"time"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

// accumulator maintains an aggregation over the rows currently inside a
// rolling window. add and remove are called with row indices as the window
// slides forward; value reports the aggregate and whether it is defined.
type accumulator interface {
	add(row int)
	remove(row int)
	value() (float64, bool)
}

// countAcc counts rows. An empty window counts as 0, not missing.
type countAcc struct {
	n int
}

func (a *countAcc) add(int)    { a.n++ }
func (a *countAcc) remove(int) { a.n-- }
func (a *countAcc) value() (float64, bool) {
	return float64(a.n), true
}

// sumAcc sums present values of a source column. An empty window sums to 0.
type sumAcc struct {
	col *table.Column
	sum float64
}

func (a *sumAcc) add(row int) {
	if v, ok := a.col.Value(row); ok {
		a.sum += v
	}
}

func (a *sumAcc) remove(row int) {
	if v, ok := a.col.Value(row); ok {
		a.sum -= v
	}
}

func (a *sumAcc) value() (float64, bool) {
	return a.sum, true
}

// meanAcc averages present values of a source column. A window with no
// present observations yields the missing marker.
type meanAcc struct {
	col *table.Column
	sum float64
	n   int
}

func (a *meanAcc) add(row int) {
	if v, ok := a.col.Value(row); ok {
		a.sum += v
		a.n++
	}
}

func (a *meanAcc) remove(row int) {
	if v, ok := a.col.Value(row); ok {
		a.sum -= v
		a.n--
	}
}

func (a *meanAcc) value() (float64, bool) {
	if a.n == 0 {
		return 0, false
	}
	return a.sum / float64(a.n), true
}

// distinctAcc counts distinct key values among rows in the window.
// An empty window yields the missing marker.
type distinctAcc struct {
	key    func(row int) string
	counts map[string]int
	n      int
}

func newDistinctAcc(key func(row int) string) *distinctAcc {
	return &distinctAcc{key: key, counts: make(map[string]int)}
}

func (a *distinctAcc) add(row int) {
	a.counts[a.key(row)]++
	a.n++
}

func (a *distinctAcc) remove(row int) {
	k := a.key(row)
	a.counts[k]--
	if a.counts[k] == 0 {
		delete(a.counts, k)
	}
	a.n--
}

func (a *distinctAcc) value() (float64, bool) {
	if a.n == 0 {
		return 0, false
	}
	return float64(len(a.counts)), true
}

// rollWindow walks one time-ordered sequence and writes the aggregate over
// the trailing window [t-span, t) into out for every row. The right-open
// boundary excludes the current row and any sibling sharing its exact
// timestamp; the left-closed boundary keeps a row sitting exactly at
// t-span. lo and hi only move forward, so the walk is O(len(seq)).
func rollWindow(tbl *table.Table, seq []int, span time.Duration, acc accumulator, out *table.Column) {
	lo, hi := 0, 0
	for _, i := range seq {
		now := tbl.Row(i).SentAt
		start := now.Add(-span)

		for hi < len(seq) && tbl.Row(seq[hi]).SentAt.Before(now) {
			acc.add(seq[hi])
			hi++
		}
		for lo < hi && tbl.Row(seq[lo]).SentAt.Before(start) {
			acc.remove(seq[lo])
			lo++
		}

		if v, ok := acc.value(); ok {
			out.Set(i, v)
		}
	}
}
