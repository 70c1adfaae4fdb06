package source

import (
	"context"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/domain"
	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/table"
)

// TableSource loads the denormalized event table the engine consumes.
type TableSource interface {
	// Load reads all message rows. Schema problems surface as
	// *table.SchemaError and are fatal to the run.
	Load(ctx context.Context) ([]*domain.Message, error)
}

// TableSink persists the augmented table produced by the engine.
type TableSink interface {
	// Write stores the raw rows together with every appended feature
	// column. Missing feature values keep their missing marker.
	Write(ctx context.Context, tbl *table.Table) error
}
