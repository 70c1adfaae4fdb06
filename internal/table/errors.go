package table

import "fmt"

// SchemaError reports a missing or malformed required column in the input
// table. It is fatal: a run never proceeds past input validation with a
// broken schema.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error on column %q: %s", e.Column, e.Reason)
}

// TemporalInconsistency reports a row whose outcome timestamp precedes its
// send timestamp. The row is excluded as a contributor to outcome
// aggregation and reported, never silently fixed.
type TemporalInconsistency struct {
	MessageID string
	Field     string
}

func (e TemporalInconsistency) String() string {
	return fmt.Sprintf("message %s: %s precedes sent_at", e.MessageID, e.Field)
}
