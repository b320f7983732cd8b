package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/swoosh-transfer/Swoosh-backend/internal/hub"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	hub       *hub.Hub
	startedAt time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(h *hub.Hub) *HealthHandler {
	if h == nil {
		panic("Hub cannot be nil for HealthHandler")
	}
	return &HealthHandler{hub: h, startedAt: time.Now()}
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	ActiveRooms   int    `json:"activeRooms"`
	Connections   int64  `json:"connections"`
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		ActiveRooms:   h.hub.Registry().RoomCount(),
		Connections:   h.hub.ConnectionCount(),
	})
}
