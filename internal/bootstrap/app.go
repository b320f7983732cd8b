package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	httpHandler "github.com/swoosh-transfer/Swoosh-backend/internal/handler/http"
	wsHandler "github.com/swoosh-transfer/Swoosh-backend/internal/handler/websocket"
	"github.com/swoosh-transfer/Swoosh-backend/internal/hub"
	mongopersistence "github.com/swoosh-transfer/Swoosh-backend/internal/infra/persistence/mongo"
	"github.com/swoosh-transfer/Swoosh-backend/internal/infra/setup"
	"github.com/swoosh-transfer/Swoosh-backend/internal/middleware"
	"github.com/swoosh-transfer/Swoosh-backend/internal/registry"
	"github.com/swoosh-transfer/Swoosh-backend/internal/service"
	"github.com/swoosh-transfer/Swoosh-backend/internal/worker"
)

// Config holds everything loaded from the environment.
type Config struct {
	MongoURI          string
	MongoDBName       string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	ServerPort        string
	LogLevel          string
	AppEnv            string
	RateLimitMax      int
	RateLimitWindow   time.Duration
	WorkerConcurrency int
	EventBufferSize   int
}

// LoadConfig reads configuration from the environment, loading a .env file
// first if one exists.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDBName:   os.Getenv("MONGO_DB_NAME"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		ServerPort:    os.Getenv("SERVER_PORT"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		AppEnv:        os.Getenv("APP_ENV"),

		RateLimitMax:      100,
		RateLimitWindow:   1 * time.Second,
		WorkerConcurrency: 10,
		EventBufferSize:   1024,
	}

	cfg.RedisDB, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	if raw := os.Getenv("WORKER_CONCURRENCY"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.WorkerConcurrency = parsed
		}
	}

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.MongoDBName == "" {
		cfg.MongoDBName = "swoosh"
	}
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("environment variable MONGO_URI must be set")
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// App wires together every component of the signaling server.
type App struct {
	Config      *Config
	Log         *logrus.Logger
	MongoClient *mongo.Client
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	Worker      *worker.WorkerServer
	Analytics   *service.AnalyticsService
	Hub         *hub.Hub
	HttpServer  *http.Server
}

// NewApp builds the application from configuration down to the HTTP server.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	logrus.SetLevel(logLevel)
	log.Info("Configuration loaded successfully")

	log.Info("Initializing infrastructure...")
	mongoClient, mongoDB, err := setup.InitMongo(cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return nil, fmt.Errorf("failed to init Mongo: %w", err)
	}
	log.Info("Mongo client initialized")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis client initialized")

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)
	log.Info("Asynq client initialized")

	log.Info("Initializing repositories...")
	statsRepo := mongopersistence.NewMongoStatsRepository(mongoDB)
	sessionRepo := mongopersistence.NewMongoSessionRepository(mongoDB)
	eventRepo := mongopersistence.NewMongoEventRepository(mongoDB)
	errorRepo := mongopersistence.NewMongoErrorLogRepository(mongoDB)
	log.Info("Repositories initialized")

	log.Info("Initializing services...")
	analyticsService := service.NewAnalyticsService(asynqClient, cfg.EventBufferSize)
	statsService := service.NewStatsService(statsRepo, eventRepo, errorRepo)
	log.Info("Services initialized")

	hubInstance := hub.NewHub(registry.New(), analyticsService)
	log.Info("Hub initialized")

	log.Info("Initializing handlers...")
	statsHandler := httpHandler.NewStatsHandler(statsService)
	roomHandler := httpHandler.NewRoomHandler(hubInstance)
	healthHandler := httpHandler.NewHealthHandler(hubInstance)
	webSocketHandler := wsHandler.NewWebSocketHandler(hubInstance)
	log.Info("Handlers initialized")

	workerServer := worker.NewWorkerServer(redisClientOpt, cfg.WorkerConcurrency, eventRepo, statsRepo, sessionRepo, errorRepo, log)
	log.Info("Worker server initialized")

	log.Info("Setting up Gin router...")
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(func(c *gin.Context) {
		allowedOrigin := os.Getenv("CORS_ALLOWED_ORIGIN")
		if allowedOrigin == "" {
			allowedOrigin = "http://localhost:3000"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
	router.Use(middleware.RateLimit(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow))

	api := router.Group("/api")
	{
		api.GET("/stats/summary", statsHandler.Summary)
		api.GET("/rooms/active", roomHandler.ActiveRooms)
	}
	router.GET("/ws", webSocketHandler.HandleConnection)
	router.GET("/health", healthHandler.Health)
	log.Info("Router setup complete")

	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	return &App{
		Config:      cfg,
		Log:         log,
		MongoClient: mongoClient,
		RedisClient: redisClient,
		AsynqClient: asynqClient,
		Worker:      workerServer,
		Analytics:   analyticsService,
		Hub:         hubInstance,
		HttpServer:  httpServer,
	}, nil
}

// Start launches the background routines and the HTTP server.
func (a *App) Start() {
	a.Log.Info("Starting application background routines...")
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	a.Analytics.Start()
	a.Log.Info("Analytics dispatcher started")

	go a.Worker.Start()
	a.Log.Info("Worker server routine started")

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown stops the application in reverse dependency order: no new
// connections, then the hub, then the event pipeline behind it.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	if a.Hub != nil {
		a.Hub.Stop()
	}

	// Drain buffered events into the queue before the worker stops pulling
	// from it.
	if a.Analytics != nil {
		a.Analytics.Stop()
	}

	if a.Worker != nil {
		a.Worker.Shutdown()
	}

	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}

	if a.MongoClient != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		if err := a.MongoClient.Disconnect(disconnectCtx); err != nil {
			a.Log.Errorf("Error disconnecting Mongo client: %v", err)
		}
	}

	a.Log.Info("Application shutdown complete.")
}

// LoggerMiddleware logs each HTTP request with latency and status.
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		if errorMessage != "" {
			entry.Error(errorMessage)
		} else if statusCode >= 500 {
			entry.Error("Server error")
		} else if statusCode >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Request handled")
		}
	}
}
