package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/swoosh-transfer/Swoosh-backend/internal/repository"
	"github.com/swoosh-transfer/Swoosh-backend/internal/tasks"
)

// WorkerServer wraps the asynq server that drains the analytics queue into
// the document store.
type WorkerServer struct {
	server      *asynq.Server
	log         *logrus.Entry
	eventRepo   repository.EventRepository
	statsRepo   repository.StatsRepository
	sessionRepo repository.SessionRepository
	errorRepo   repository.ErrorLogRepository
}

// NewWorkerServer creates a WorkerServer.
func NewWorkerServer(
	redisOpt asynq.RedisClientOpt,
	concurrency int,
	eventRepo repository.EventRepository,
	statsRepo repository.StatsRepository,
	sessionRepo repository.SessionRepository,
	errorRepo repository.ErrorLogRepository,
	logger *logrus.Logger,
) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")
	if concurrency <= 0 {
		concurrency = 10
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server:      server,
		log:         logEntry,
		eventRepo:   eventRepo,
		statsRepo:   statsRepo,
		sessionRepo: sessionRepo,
		errorRepo:   errorRepo,
	}
}

// Start runs the worker server. It should be called in its own goroutine.
func (ws *WorkerServer) Start() {
	mux := asynq.NewServeMux()

	eventHandler := NewAnalyticsEventHandler(ws.eventRepo, ws.statsRepo, ws.sessionRepo, ws.errorRepo)
	mux.HandleFunc(tasks.TypeAnalyticsEvent, eventHandler.ProcessTask)

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

// Shutdown gracefully stops the worker server.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
