package repository

import (
	"context"
	"time"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
)

// SessionRepository stores transfer sessions. Sessions are never deleted;
// terminal transitions only update the existing document.
type SessionRepository interface {
	// Create inserts a new session document.
	Create(ctx context.Context, session *domain.TransferSession) error

	// FindByID returns a session or ErrSessionNotFound.
	FindByID(ctx context.Context, sessionID string) (*domain.TransferSession, error)

	// UpdateStatus moves a session to the given status.
	UpdateStatus(ctx context.Context, sessionID string, status domain.TransferStatus) error

	// Finish moves a session to a terminal status and stamps end time,
	// duration and an optional failure reason.
	Finish(ctx context.Context, sessionID string, status domain.TransferStatus, endedAt time.Time, durationMs int64, reason string) error

	// IncrementSignal atomically bumps one of the session's signaling
	// counters.
	IncrementSignal(ctx context.Context, sessionID string, kind domain.SignalKind) error
}
