package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/swoosh-transfer/Swoosh-backend/internal/service"
)

// StatsHandler serves the usage-summary endpoint.
type StatsHandler struct {
	statsService *service.StatsService
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	if statsService == nil {
		panic("StatsService cannot be nil for StatsHandler")
	}
	return &StatsHandler{statsService: statsService}
}

// Summary handles GET /api/stats/summary?days=N. days defaults to 7 and is
// capped at 90 to bound the query window.
func (h *StatsHandler) Summary(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			ErrorResponse(c, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}
	if days > 90 {
		days = 90
	}

	summary, err := h.statsService.Summary(c.Request.Context(), days)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	logrus.WithField("days", days).Debug("Stats summary served")
	SuccessResponse(c, http.StatusOK, summary)
}
