package tasks

import (
	"encoding/json"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
)

// Task type constants for the background queue.
const (
	TypeAnalyticsEvent = "analytics:event"
)

// AnalyticsEventPayload wraps the domain event carried by an analytics task.
type AnalyticsEventPayload struct {
	Event domain.Event `json:"event"`
}

// NewAnalyticsEventTask serializes an event into a task payload.
func NewAnalyticsEventTask(event domain.Event) ([]byte, error) {
	payload := AnalyticsEventPayload{Event: event}
	return json.Marshal(payload)
}
