package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
	"github.com/swoosh-transfer/Swoosh-backend/internal/hub"
	"github.com/swoosh-transfer/Swoosh-backend/internal/registry"
	"github.com/swoosh-transfer/Swoosh-backend/internal/repository/mocks"
	"github.com/swoosh-transfer/Swoosh-backend/internal/service"
)

type nopRecorder struct{}

func (nopRecorder) Record(domain.Event) {}

func performRequest(handler gin.HandlerFunc, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	handler(c)
	return w
}

func TestStatsHandler_Summary(t *testing.T) {
	statsRepo := new(mocks.StatsRepository)
	eventRepo := new(mocks.EventRepository)
	errorRepo := new(mocks.ErrorLogRepository)
	statsRepo.On("FindRange", mock.Anything, mock.Anything, mock.Anything).Return([]domain.DailyStat{{Date: "2026-08-30"}}, nil)
	eventRepo.On("CountSince", mock.Anything, mock.Anything).Return(int64(42), nil)
	errorRepo.On("CountByKind", mock.Anything, mock.Anything).Return([]domain.ErrorCount{}, nil)
	h := NewStatsHandler(service.NewStatsService(statsRepo, eventRepo, errorRepo))

	w := performRequest(h.Summary, "/api/stats/summary?days=3")

	require.Equal(t, http.StatusOK, w.Code)
	var resp service.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "3d", resp.Period)
	assert.EqualValues(t, 42, resp.TotalEvents)
	require.Len(t, resp.DailyStats, 1)
}

func TestStatsHandler_Summary_InvalidDays(t *testing.T) {
	h := NewStatsHandler(service.NewStatsService(new(mocks.StatsRepository), new(mocks.EventRepository), new(mocks.ErrorLogRepository)))

	for _, raw := range []string{"abc", "0", "-2"} {
		w := performRequest(h.Summary, "/api/stats/summary?days="+raw)
		assert.Equal(t, http.StatusBadRequest, w.Code, "days=%s", raw)
	}
}

func TestRoomHandler_ActiveRooms(t *testing.T) {
	reg := registry.New()
	roomID, err := reg.CreateRoom("conn-1")
	require.NoError(t, err)
	h := NewRoomHandler(hub.NewHub(reg, nopRecorder{}))

	w := performRequest(h.ActiveRooms, "/api/rooms/active")

	require.Equal(t, http.StatusOK, w.Code)
	var resp ActiveRoomsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalActiveRooms)
	require.Len(t, resp.Rooms, 1)
	assert.Equal(t, roomID, resp.Rooms[0].ID)
	assert.Equal(t, 1, resp.Rooms[0].UserCount)
	assert.False(t, resp.Rooms[0].IsFull)
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(hub.NewHub(registry.New(), nopRecorder{}))

	w := performRequest(h.Health, "/health")

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Zero(t, resp.ActiveRooms)
	assert.Zero(t, resp.Connections)
}
