package etl

import (
	"context"

	"github.com/BartekS5/eventsync/pkg/models"
)

// Fetcher retrieves every raw event the source reports for a window.
type Fetcher interface {
	Fetch(ctx context.Context, w models.Window) ([]models.Event, error)
}

// Pusher delivers records to the destination for shape. It returns the number
// of records accepted before any failure.
type Pusher interface {
	Push(ctx context.Context, shape models.Shape, records []models.Record) (int, error)
}
