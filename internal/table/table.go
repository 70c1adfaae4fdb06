package table

import (
	"fmt"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/domain"
)

// ValidationReport summarizes row-level issues found while building a
// table. Affected rows stay in the table but are excluded from the
// aggregations the issue would poison.
type ValidationReport struct {
	NullSentRows    []string
	Inconsistencies []TemporalInconsistency
}

// Table is the immutable event table plus the feature columns appended so
// far. Raw rows are never mutated; stages only append columns through
// WithColumns, which returns a new table view sharing the rows.
type Table struct {
	rows []*domain.Message

	// outcomeValid marks rows whose outcome timestamps are consistent
	// with sent_at. Rows failing the check keep their features but do not
	// contribute outcome values to any window.
	outcomeValid []bool

	order  *Ordering
	report ValidationReport

	cols     []Column
	colIndex map[string]int
}

// New validates the rows and builds the temporal ordering index.
// Duplicate message ids are a fatal schema error.
func New(rows []*domain.Message) (*Table, error) {
	seen := make(map[string]struct{}, len(rows))
	for _, m := range rows {
		if m.MessageID == "" {
			return nil, &SchemaError{Column: "message_id", Reason: "empty value"}
		}
		if _, dup := seen[m.MessageID]; dup {
			return nil, &SchemaError{Column: "message_id", Reason: fmt.Sprintf("duplicate value %q", m.MessageID)}
		}
		seen[m.MessageID] = struct{}{}
	}

	t := &Table{
		rows:         rows,
		outcomeValid: make([]bool, len(rows)),
		colIndex:     make(map[string]int),
	}

	for i, m := range rows {
		t.outcomeValid[i] = true
		if !m.HasSentAt() {
			t.report.NullSentRows = append(t.report.NullSentRows, m.MessageID)
			continue
		}
		for field, ts := range m.OutcomeTimestamps() {
			if ts != nil && ts.Before(m.SentAt) {
				t.outcomeValid[i] = false
				t.report.Inconsistencies = append(t.report.Inconsistencies, TemporalInconsistency{
					MessageID: m.MessageID,
					Field:     field,
				})
			}
		}
	}

	t.order = buildOrdering(t)
	return t, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// Row returns the raw message at row i.
func (t *Table) Row(i int) *domain.Message { return t.rows[i] }

// OutcomeValid reports whether row i may contribute outcome values to
// windowed aggregation.
func (t *Table) OutcomeValid(i int) bool { return t.outcomeValid[i] }

// Ordering returns the temporal ordering index.
func (t *Table) Ordering() *Ordering { return t.order }

// Report returns the validation report built by New.
func (t *Table) Report() ValidationReport { return t.report }

// Column returns the feature column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	idx, ok := t.colIndex[name]
	if !ok {
		return nil, false
	}
	return &t.cols[idx], true
}

// MustColumn returns a column that an earlier stage is contractually
// required to have produced. A miss is a programming defect.
func (t *Table) MustColumn(name string) *Column {
	col, ok := t.Column(name)
	if !ok {
		panic(fmt.Sprintf("table: column %q not computed", name))
	}
	return col
}

// Columns returns the appended feature columns in insertion order.
func (t *Table) Columns() []Column { return t.cols }

// ColumnNames returns the appended column names in insertion order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// WithColumns returns a new table view with the given columns appended.
// Column names must be unique and lengths must match the row count.
func (t *Table) WithColumns(cols ...Column) (*Table, error) {
	next := &Table{
		rows:         t.rows,
		outcomeValid: t.outcomeValid,
		order:        t.order,
		report:       t.report,
		cols:         make([]Column, len(t.cols), len(t.cols)+len(cols)),
		colIndex:     make(map[string]int, len(t.colIndex)+len(cols)),
	}
	copy(next.cols, t.cols)
	for name, idx := range t.colIndex {
		next.colIndex[name] = idx
	}

	for _, col := range cols {
		if col.Len() != len(t.rows) {
			return nil, fmt.Errorf("column %q has %d rows, table has %d", col.Name, col.Len(), len(t.rows))
		}
		if _, exists := next.colIndex[col.Name]; exists {
			return nil, fmt.Errorf("column %q already exists", col.Name)
		}
		next.colIndex[col.Name] = len(next.cols)
		next.cols = append(next.cols, col)
	}
	return next, nil
}
