package service_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
	"github.com/swoosh-transfer/Swoosh-backend/internal/service"
	"github.com/swoosh-transfer/Swoosh-backend/internal/tasks"
)

// captureEnqueuer records enqueued tasks instead of talking to Redis.
type captureEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (c *captureEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func (c *captureEnqueuer) events(t *testing.T) []domain.Event {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Event, 0, len(c.tasks))
	for _, task := range c.tasks {
		require.Equal(t, tasks.TypeAnalyticsEvent, task.Type())
		var payload tasks.AnalyticsEventPayload
		require.NoError(t, json.Unmarshal(task.Payload(), &payload))
		out = append(out, payload.Event)
	}
	return out
}

func waitForEvents(t *testing.T, enq *captureEnqueuer, want int) []domain.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := enq.events(t); len(events) >= want {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	return enq.events(t)
}

func TestAnalyticsService_RecordDelivers(t *testing.T) {
	enq := &captureEnqueuer{}
	sink := service.NewAnalyticsService(enq, 16)
	sink.Start()
	defer sink.Stop()

	sink.Record(domain.Event{Kind: domain.EventRoomCreated, RoomID: "ABC123"})
	sink.Record(domain.Event{Kind: domain.EventRoomJoined, RoomID: "ABC123", ConnectionID: "c2"})

	events := waitForEvents(t, enq, 2)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventRoomCreated, events[0].Kind)
	assert.Equal(t, domain.EventRoomJoined, events[1].Kind)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp stamped on record")
}

func TestAnalyticsService_RoomClosedDedupSameDay(t *testing.T) {
	enq := &captureEnqueuer{}
	sink := service.NewAnalyticsService(enq, 16)
	sink.Start()
	defer sink.Stop()

	now := time.Now().UTC()
	// Explicit leave and a redundant disconnect both close the same room.
	sink.Record(domain.Event{Kind: domain.EventRoomClosed, RoomID: "ABC123", Timestamp: now})
	sink.Record(domain.Event{Kind: domain.EventRoomClosed, RoomID: "ABC123", Timestamp: now})
	// A different room on the same day still counts.
	sink.Record(domain.Event{Kind: domain.EventRoomClosed, RoomID: "XYZ789", Timestamp: now})

	events := waitForEvents(t, enq, 2)
	require.Len(t, events, 2)
	assert.Equal(t, "ABC123", events[0].RoomID)
	assert.Equal(t, "XYZ789", events[1].RoomID)
}

func TestAnalyticsService_RoomClosedNewDayResets(t *testing.T) {
	enq := &captureEnqueuer{}
	sink := service.NewAnalyticsService(enq, 16)
	sink.Start()
	defer sink.Stop()

	day1 := time.Date(2026, 8, 29, 23, 50, 0, 0, time.UTC)
	day2 := day1.Add(time.Hour)

	sink.Record(domain.Event{Kind: domain.EventRoomClosed, RoomID: "ABC123", Timestamp: day1})
	sink.Record(domain.Event{Kind: domain.EventRoomClosed, RoomID: "ABC123", Timestamp: day2})

	events := waitForEvents(t, enq, 2)
	assert.Len(t, events, 2, "dedup scope is per calendar day")
}

func TestAnalyticsService_ConcurrentRecords(t *testing.T) {
	enq := &captureEnqueuer{}
	sink := service.NewAnalyticsService(enq, 1024)
	sink.Start()

	const workers = 8
	const perWorker = 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				sink.Record(domain.Event{
					Kind:         domain.EventConnectionOpened,
					ConnectionID: fmt.Sprintf("w%d-c%d", w, i),
				})
			}
		}(w)
	}
	wg.Wait()
	sink.Stop()

	// The buffer is sized above the total, so no event may be dropped and
	// none may be duplicated.
	assert.Len(t, enq.events(t), workers*perWorker)
}

func TestAnalyticsService_StopDrainsBuffer(t *testing.T) {
	enq := &captureEnqueuer{}
	sink := service.NewAnalyticsService(enq, 64)
	sink.Start()

	for i := 0; i < 10; i++ {
		sink.Record(domain.Event{Kind: domain.EventSignal, RoomID: "ABC123", SessionID: "s1"})
	}
	sink.Stop()

	assert.Len(t, enq.events(t), 10)
}
