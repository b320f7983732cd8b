package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
	"github.com/swoosh-transfer/Swoosh-backend/internal/hub"
)

// RoomHandler serves read-only room queries against the live registry.
type RoomHandler struct {
	hub *hub.Hub
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(h *hub.Hub) *RoomHandler {
	if h == nil {
		panic("Hub cannot be nil for RoomHandler")
	}
	return &RoomHandler{hub: h}
}

// ActiveRoomsResponse is the response of the active-rooms query.
type ActiveRoomsResponse struct {
	TotalActiveRooms int               `json:"totalActiveRooms"`
	Rooms            []domain.RoomInfo `json:"rooms"`
}

// ActiveRooms handles GET /api/rooms/active. The snapshot is taken under the
// registry's read lock and may lag in-flight transitions by one message.
func (h *RoomHandler) ActiveRooms(c *gin.Context) {
	rooms := h.hub.Registry().ActiveRooms()
	SuccessResponse(c, http.StatusOK, ActiveRoomsResponse{
		TotalActiveRooms: len(rooms),
		Rooms:            rooms,
	})
}
