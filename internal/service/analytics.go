package service

import (
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
	"github.com/swoosh-transfer/Swoosh-backend/internal/tasks"
)

// TaskEnqueuer is the slice of asynq.Client the sink uses.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AnalyticsService is the fire-and-forget event sink. Record never blocks
// and never returns an error: events are handed to a buffered channel and a
// dispatcher goroutine pushes them onto the background queue, where the
// worker gets at-least-once delivery into the store. If the queue backend is
// unreachable the event is logged and dropped; the signaling path must keep
// working with the store permanently down.
type AnalyticsService struct {
	client TaskEnqueuer
	events chan domain.Event
	done   chan struct{}
	wg     sync.WaitGroup

	// closedRooms deduplicates room-closed events per room per calendar day,
	// so an explicit leave followed by a redundant disconnect does not count
	// the same closure twice. Entries for past days are pruned on rollover.
	mu          sync.Mutex
	closedRooms map[string]struct{}
	closedDay   string
}

// NewAnalyticsService creates the sink. bufferSize bounds the in-process
// hand-off queue; events beyond it are dropped, not blocked on.
func NewAnalyticsService(client TaskEnqueuer, bufferSize int) *AnalyticsService {
	if client == nil {
		panic("task enqueuer cannot be nil for AnalyticsService")
	}
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &AnalyticsService{
		client:      client,
		events:      make(chan domain.Event, bufferSize),
		done:        make(chan struct{}),
		closedRooms: make(map[string]struct{}),
	}
}

// Start launches the dispatcher goroutine.
func (s *AnalyticsService) Start() {
	s.wg.Add(1)
	go s.dispatch()
}

// Stop drains pending events and stops the dispatcher.
func (s *AnalyticsService) Stop() {
	close(s.done)
	s.wg.Wait()
}

// Record submits an event for background delivery. Non-blocking: if the
// buffer is full the event is dropped with a warning.
func (s *AnalyticsService) Record(event domain.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Kind == domain.EventRoomClosed && s.isDuplicateClosure(event) {
		logrus.WithFields(logrus.Fields{
			"component": "analytics",
			"room_id":   event.RoomID,
		}).Debug("Duplicate room closure for the day, event suppressed")
		return
	}
	select {
	case s.events <- event:
	default:
		logrus.WithFields(logrus.Fields{
			"component":  "analytics",
			"event_kind": event.Kind,
		}).Warn("Analytics event buffer full, dropping event")
	}
}

// isDuplicateClosure reports whether this room already had a closure
// recorded today, marking it if not.
func (s *AnalyticsService) isDuplicateClosure(event domain.Event) bool {
	day := domain.DayKey(event.Timestamp)

	s.mu.Lock()
	defer s.mu.Unlock()
	if day != s.closedDay {
		s.closedRooms = make(map[string]struct{})
		s.closedDay = day
	}
	if _, seen := s.closedRooms[event.RoomID]; seen {
		return true
	}
	s.closedRooms[event.RoomID] = struct{}{}
	return false
}

func (s *AnalyticsService) dispatch() {
	defer s.wg.Done()
	log := logrus.WithField("component", "analytics")
	for {
		select {
		case event := <-s.events:
			s.enqueue(log, event)
		case <-s.done:
			// Drain whatever is already buffered before exiting.
			for {
				select {
				case event := <-s.events:
					s.enqueue(log, event)
				default:
					log.Info("Analytics dispatcher stopped")
					return
				}
			}
		}
	}
}

func (s *AnalyticsService) enqueue(log *logrus.Entry, event domain.Event) {
	payload, err := tasks.NewAnalyticsEventTask(event)
	if err != nil {
		log.WithError(err).WithField("event_kind", event.Kind).Error("Failed to serialize analytics event")
		return
	}
	task := asynq.NewTask(tasks.TypeAnalyticsEvent, payload)
	if _, err := s.client.Enqueue(task, asynq.Queue("default"), asynq.MaxRetry(5)); err != nil {
		log.WithError(err).WithField("event_kind", event.Kind).Error("Failed to enqueue analytics event, dropping")
	}
}
