package repository

import (
	"context"
	"time"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
)

// EventRepository appends raw domain events for later inspection.
type EventRepository interface {
	// Insert appends one event. Events are never mutated.
	Insert(ctx context.Context, event *domain.Event) error

	// CountSince returns the number of events recorded at or after from.
	CountSince(ctx context.Context, from time.Time) (int64, error)
}

// ErrorLogRepository appends structured error records.
type ErrorLogRepository interface {
	// Insert appends one error record.
	Insert(ctx context.Context, entry *domain.ErrorLog) error

	// CountByKind returns per-kind error counts for entries recorded at or
	// after from.
	CountByKind(ctx context.Context, from time.Time) ([]domain.ErrorCount, error)
}
