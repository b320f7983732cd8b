package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
	"github.com/swoosh-transfer/Swoosh-backend/internal/repository"
	"github.com/swoosh-transfer/Swoosh-backend/internal/tasks"
)

// AnalyticsEventHandler turns queued domain events into store writes: the
// raw event is appended to the events collection, then the event kind
// decides which counters, sessions or error logs to touch. A failed write
// returns the error so asynq redelivers the task.
type AnalyticsEventHandler struct {
	eventRepo   repository.EventRepository
	statsRepo   repository.StatsRepository
	sessionRepo repository.SessionRepository
	errorRepo   repository.ErrorLogRepository
}

// NewAnalyticsEventHandler creates the handler.
func NewAnalyticsEventHandler(
	eventRepo repository.EventRepository,
	statsRepo repository.StatsRepository,
	sessionRepo repository.SessionRepository,
	errorRepo repository.ErrorLogRepository,
) *AnalyticsEventHandler {
	return &AnalyticsEventHandler{
		eventRepo:   eventRepo,
		statsRepo:   statsRepo,
		sessionRepo: sessionRepo,
		errorRepo:   errorRepo,
	}
}

// ProcessTask implements asynq.Handler.
func (h *AnalyticsEventHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.AnalyticsEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal analytics event payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	event := payload.Event
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"component":  "analytics_worker",
		"event_kind": event.Kind,
		"room_id":    event.RoomID,
	})

	if err := h.eventRepo.Insert(ctx, &event); err != nil {
		logCtx.WithError(err).Error("Failed to insert analytics event")
		return err
	}

	day := domain.DayKey(event.Timestamp)
	hour := event.Timestamp.UTC().Hour()

	switch event.Kind {
	case domain.EventConnectionOpened:
		return h.recordConnection(ctx, event, day, hour)
	case domain.EventRoomCreated:
		return h.recordRoomCreated(ctx, event, day, hour)
	case domain.EventRoomClosed:
		return h.statsRepo.IncrementCounter(ctx, day, domain.StatRoomsCompleted, 1)
	case domain.EventTransferInitiated:
		return h.recordTransferInitiated(ctx, event, day, hour)
	case domain.EventTransferUpdated:
		return h.recordTransferUpdated(ctx, event)
	case domain.EventTransferCompleted:
		return h.recordTransferCompleted(ctx, event, day)
	case domain.EventTransferFailed:
		return h.recordTransferFailed(ctx, event)
	case domain.EventSignal:
		return h.recordSignal(ctx, event, logCtx)
	case domain.EventError:
		return h.recordError(ctx, event)
	case domain.EventRoomJoined, domain.EventUserLeft:
		// Event record only; no counter is tied to these.
		return nil
	default:
		logCtx.Warn("Unknown analytics event kind, stored raw event only")
		return nil
	}
}

func (h *AnalyticsEventHandler) recordConnection(ctx context.Context, event domain.Event, day string, hour int) error {
	if err := h.statsRepo.IncrementCounter(ctx, day, domain.StatTotalConnections, 1); err != nil {
		return err
	}
	if event.ConnectionID != "" {
		if err := h.statsRepo.AddConnection(ctx, day, event.ConnectionID); err != nil {
			return err
		}
	}
	return h.statsRepo.IncrementHourly(ctx, day, hour, domain.HourlyConnections, 1)
}

func (h *AnalyticsEventHandler) recordRoomCreated(ctx context.Context, event domain.Event, day string, hour int) error {
	if err := h.statsRepo.IncrementCounter(ctx, day, domain.StatRoomsCreated, 1); err != nil {
		return err
	}
	if event.ActiveRooms > 0 {
		if err := h.statsRepo.RecordPeakRooms(ctx, day, event.ActiveRooms); err != nil {
			return err
		}
	}
	return h.statsRepo.IncrementHourly(ctx, day, hour, domain.HourlyRoomsCreated, 1)
}

func (h *AnalyticsEventHandler) recordTransferInitiated(ctx context.Context, event domain.Event, day string, hour int) error {
	session := &domain.TransferSession{
		SessionID:   event.SessionID,
		RoomID:      event.RoomID,
		InitiatorID: event.ConnectionID,
		ReceiverID:  event.PeerID,
		FileCount:   event.FileCount,
		TotalBytes:  event.TotalBytes,
		Status:      domain.TransferInitiated,
		StartedAt:   event.Timestamp,
	}
	if err := h.sessionRepo.Create(ctx, session); err != nil && !errors.Is(err, repository.ErrDuplicateEntry) {
		return err
	}
	if err := h.statsRepo.IncrementCounter(ctx, day, domain.StatTransfersInitiated, 1); err != nil {
		return err
	}
	return h.statsRepo.IncrementHourly(ctx, day, hour, domain.HourlyTransfers, 1)
}

func (h *AnalyticsEventHandler) recordTransferUpdated(ctx context.Context, event domain.Event) error {
	// A missing session means the report raced its own creation; returning
	// the error lets redelivery pick it up.
	return h.sessionRepo.UpdateStatus(ctx, event.SessionID, domain.TransferTransferring)
}

func (h *AnalyticsEventHandler) recordTransferCompleted(ctx context.Context, event domain.Event, day string) error {
	totalBytes := event.TotalBytes
	var durationMs int64

	session, err := h.sessionRepo.FindByID(ctx, event.SessionID)
	switch {
	case err == nil:
		if totalBytes == 0 {
			totalBytes = session.TotalBytes
		}
		durationMs = event.Timestamp.Sub(session.StartedAt).Milliseconds()
		if durationMs < 0 {
			durationMs = 0
		}
		if err := h.sessionRepo.Finish(ctx, event.SessionID, domain.TransferCompleted, event.Timestamp, durationMs, ""); err != nil {
			return err
		}
	case errors.Is(err, repository.ErrSessionNotFound):
		// Shorthand byte-count report with no prior transfer-start: create
		// the session already completed.
		if totalBytes == 0 {
			totalBytes = event.Bytes
		}
		ended := event.Timestamp
		created := &domain.TransferSession{
			SessionID:   event.SessionID,
			RoomID:      event.RoomID,
			InitiatorID: event.ConnectionID,
			TotalBytes:  totalBytes,
			Status:      domain.TransferCompleted,
			StartedAt:   event.Timestamp,
			EndedAt:     &ended,
		}
		if err := h.sessionRepo.Create(ctx, created); err != nil && !errors.Is(err, repository.ErrDuplicateEntry) {
			return err
		}
	default:
		return err
	}

	if err := h.statsRepo.IncrementCounter(ctx, day, domain.StatTransfersCompleted, 1); err != nil {
		return err
	}
	if totalBytes > 0 {
		if err := h.statsRepo.IncrementCounter(ctx, day, domain.StatTotalBytes, totalBytes); err != nil {
			return err
		}
	}
	if durationMs > 0 {
		if err := h.statsRepo.IncrementCounter(ctx, day, domain.StatSessionMillis, durationMs); err != nil {
			return err
		}
	}
	return nil
}

func (h *AnalyticsEventHandler) recordTransferFailed(ctx context.Context, event domain.Event) error {
	status := domain.TransferFailed
	if event.Message == "cancelled" {
		status = domain.TransferCancelled
	}
	err := h.sessionRepo.Finish(ctx, event.SessionID, status, event.Timestamp, 0, event.Message)
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return err
	}
	return h.errorRepo.Insert(ctx, &domain.ErrorLog{
		Kind:         domain.ErrKindTransferFailed,
		Message:      event.Message,
		RoomID:       event.RoomID,
		ConnectionID: event.ConnectionID,
		Metadata:     event.Metadata,
		Timestamp:    event.Timestamp,
	})
}

func (h *AnalyticsEventHandler) recordSignal(ctx context.Context, event domain.Event, logCtx *logrus.Entry) error {
	if event.SessionID == "" {
		return nil
	}
	err := h.sessionRepo.IncrementSignal(ctx, event.SessionID, event.SignalKind)
	if errors.Is(err, repository.ErrSessionNotFound) {
		logCtx.Debug("Signal tally for unknown session dropped")
		return nil
	}
	return err
}

func (h *AnalyticsEventHandler) recordError(ctx context.Context, event domain.Event) error {
	kind := event.ErrorKind
	if kind == "" {
		kind = domain.ErrKindOther
	}
	return h.errorRepo.Insert(ctx, &domain.ErrorLog{
		Kind:         kind,
		Message:      event.Message,
		RoomID:       event.RoomID,
		ConnectionID: event.ConnectionID,
		Metadata:     event.Metadata,
		Timestamp:    event.Timestamp,
	})
}
