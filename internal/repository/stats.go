package repository

import (
	"context"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
)

// StatsRepository maintains the per-day aggregate documents. Every write must
// be a server-side atomic operation (increment-or-create-then-increment);
// implementations must never read a document, mutate it in memory and write
// it back, because multiple server processes update the same day concurrently.
type StatsRepository interface {
	// IncrementCounter atomically adds amount to a top-level counter of the
	// given day's document, creating the document if needed.
	IncrementCounter(ctx context.Context, day string, field string, amount int64) error

	// IncrementHourly atomically adds amount to one field of the given hour's
	// bucket, addressed by (day, hour, field).
	IncrementHourly(ctx context.Context, day string, hour int, field string, amount int64) error

	// RecordPeakRooms raises the day's peak-concurrent-rooms high-water mark
	// to active if it is higher than the stored value.
	RecordPeakRooms(ctx context.Context, day string, active int) error

	// AddConnection records a connection ID into the day's unique-user set.
	AddConnection(ctx context.Context, day string, connID string) error

	// FindRange returns the daily documents for day keys in [from, to],
	// ordered by day ascending. Missing days are simply absent.
	FindRange(ctx context.Context, from, to string) ([]domain.DailyStat, error)
}
