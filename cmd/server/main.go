package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/masterlab/api/internal/audio"
	"github.com/masterlab/api/internal/client"
	"github.com/masterlab/api/internal/config"
	"github.com/masterlab/api/internal/handler"
	"github.com/masterlab/api/internal/master"
	"github.com/masterlab/api/internal/middleware"
	"github.com/masterlab/api/internal/queue"
	"github.com/masterlab/api/internal/service"
	"github.com/masterlab/api/internal/storage"
	"github.com/masterlab/api/internal/store"
	"github.com/masterlab/api/internal/worker"
	ws "github.com/masterlab/api/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	files, err := storage.New(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to prepare storage: %v", err)
	}

	retention := time.Duration(cfg.Storage.RetentionHours) * time.Hour
	stageTimeout := time.Duration(cfg.Worker.StageTimeoutSeconds) * time.Second

	// Redis is optional: without it the service runs the in-process job
	// backend (single node, no rate limiting).
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis not available, using in-process job backend: %v", err)
			redisClient = nil
		}
	} else {
		log.Println("Info: Redis not configured, using in-process job backend")
	}

	validate := validator.New()
	hub := ws.NewHub()

	audioClient := client.NewAudioClient(&cfg.Matcher)
	if !audioClient.IsConfigured() {
		log.Println("Info: match engine not configured; Reference Match disabled, MP3 export degrades to WAV")
	}

	codec := audio.NewCodec()
	orchestrator := master.New(codec, master.DefaultStrategies(audioClient), audioClient, files, stageTimeout)

	var (
		jobStore  store.JobStore
		jobQueue  queue.Queue
		localPool *queue.LocalPool
	)
	if redisClient != nil {
		jobStore = store.NewRedisStore(redisClient, retention)
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer asynqClient.Close()
		jobQueue = queue.NewAsynqQueue(asynqClient, retention)
	} else {
		jobStore = store.NewMemoryStore()
	}

	masterWorker := worker.NewMasterWorker(jobStore, orchestrator, hub)
	if redisClient == nil {
		localPool = queue.NewLocalPool(masterWorker, 64)
		localPool.Start(cfg.Worker.Concurrency)
		defer localPool.Stop()
		jobQueue = localPool
	}

	masterService := service.NewMasterService(jobStore, jobQueue, files)
	masterHandler := handler.NewMasterHandler(masterService, validate)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Retention sweeper
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	cleanup := service.NewCleanupService(jobStore, files, retention,
		time.Duration(cfg.Storage.SweepMinutes)*time.Minute)
	go cleanup.Run(cleanupCtx)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    110 * 1024 * 1024, // headroom over the 100MB upload cap
	})

	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{Format: logFormat}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":   redisClient != nil,
				"matcher": audioClient.IsConfigured(),
			},
		})
	})

	api := app.Group("/api")
	masterGroup := api.Group("/master")
	masterGroup.Post("/", rateLimiter.MasterLimit(cfg.RateLimit.MasterPerHour), masterHandler.Submit)
	masterGroup.Get("/status/:jobId", rateLimiter.StatusLimit(cfg.RateLimit.StatusPerMin), masterHandler.Status)
	masterGroup.Get("/result/:jobId", rateLimiter.StatusLimit(cfg.RateLimit.StatusPerMin), masterHandler.Result)
	masterGroup.Get("/download/:jobId", masterHandler.Download)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

	// Asynq worker server (Redis backend only)
	if redisClient != nil {
		go startWorkerServer(cfg, masterWorker)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, masterWorker *worker.MasterWorker) {
	asynqLogLevel := asynq.InfoLevel
	switch strings.ToLower(cfg.Server.LogLevel) {
	case "debug":
		asynqLogLevel = asynq.DebugLevel
	case "warn":
		asynqLogLevel = asynq.WarnLevel
	case "error":
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"master": 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskTypeMaster, masterWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
