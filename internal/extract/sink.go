package extract

import (
	"context"

	"github.com/nhle/mailextract/internal/model"
)

// Sink creates the records an action produced. Implementations own
// rendering and persistence; the extractor only guarantees record shape.
type Sink interface {
	CreateEvent(ctx context.Context, rec model.EventRecord) error
	CreateTask(ctx context.Context, rec model.TaskRecord) error
	CreateContact(ctx context.Context, rec model.ContactRecord, addressBook string) error
}

// CategorySource lists the category names records may be filed under, in
// display order. An empty list means no category instruction is sent.
type CategorySource interface {
	Categories(ctx context.Context) ([]string, error)
}
