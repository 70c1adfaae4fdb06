package table

// Column is a derived feature column keyed by row position. A value is
// either present (Valid true) or the defined missing marker (Valid false).
// Missing is deliberately not represented as 0 or NaN so that "no
// observations" can never be confused with "observed zero".
type Column struct {
	Name   string
	Values []float64
	Valid  []bool
}

// NewColumn creates a column of n rows, all missing.
func NewColumn(name string, n int) Column {
	return Column{
		Name:   name,
		Values: make([]float64, n),
		Valid:  make([]bool, n),
	}
}

// Set stores a present value at row i.
func (c *Column) Set(i int, v float64) {
	c.Values[i] = v
	c.Valid[i] = true
}

// Value returns the value at row i and whether it is present.
func (c *Column) Value(i int) (float64, bool) {
	if !c.Valid[i] {
		return 0, false
	}
	return c.Values[i], true
}

// ValueOr returns the value at row i, or def when missing.
func (c *Column) ValueOr(i int, def float64) float64 {
	if !c.Valid[i] {
		return def
	}
	return c.Values[i]
}

// Len returns the number of rows.
func (c *Column) Len() int {
	return len(c.Values)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// BoolColumn builds a 0/1 column from a per-row predicate.
func BoolColumn(name string, n int, pred func(i int) bool) Column {
	col := NewColumn(name, n)
	for i := 0; i < n; i++ {
		col.Set(i, boolToFloat(pred(i)))
	}
	return col
}
