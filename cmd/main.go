package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"enricher/internal/config"
	"enricher/internal/core/enrich"
	"enricher/internal/core/extract"
	"enricher/internal/core/fetch"
	"enricher/internal/core/job"
	"enricher/internal/core/mapper"
	"enricher/internal/health"
	"enricher/internal/logger"
	rds "enricher/internal/platform/redis"
	tasks "enricher/internal/platform/tasks"
	"enricher/internal/server"
	"enricher/internal/store/memory"
	"enricher/internal/store/postgres"
	"enricher/internal/worker"
)

// retryBaseDelay is the base of the queue's exponential backoff.
const retryBaseDelay = 2 * time.Second

// retryDelay is the queue backoff schedule: 2s, 4s, 8s, ... n is the
// number of retries already performed, so it is zero on the first failure.
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	return retryBaseDelay << n
}

func main() {
	cfg := config.Load()
	log.Printf("[enricher] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	logr := logger.New("main")

	// Redis client (queue transport + discovery cache)
	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer redisSvc.Close()

	// Persistence: Postgres when configured, in-memory otherwise.
	var st job.Store
	var dbCheck health.Checker
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer pg.Close()
		st = pg
		dbCheck = pg
	} else {
		logr.LogWarn("DATABASE_URL not set, using in-memory store")
		st = memory.New()
	}

	// Asynq client and server
	taskClient := tasks.New(redisSvc)
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency:    cfg.WorkerConcurrency,
		Queues:         map[string]int{"default": 1},
		RetryDelayFunc: retryDelay,
	})

	// Extraction rules: compiled-in defaults, optionally overridden by file.
	rules := extract.DefaultRules()
	if cfg.SelectorRulesPath != "" {
		rules, err = extract.LoadRules(cfg.SelectorRulesPath)
		if err != nil {
			log.Fatalf("failed to load selector rules: %v", err)
		}
	}

	// Core services
	jobSvc := job.NewService(st)
	extractSvc := extract.NewService(rules)
	fetchClient := fetch.New()
	mapSvc := mapper.NewService(redisSvc)
	enrichSvc := enrich.NewService(st, jobSvc, taskClient, fetchClient, extractSvc, enrich.Config{
		RequestDelay: time.Duration(cfg.RequestDelayMs) * time.Millisecond,
		MaxRetries:   cfg.TaskMaxRetries,
	})

	// Worker mux
	mux := worker.NewMux()
	mux.HandleFunc(tasks.TaskTypeEnrich, enrichSvc.HandleEnrichTask)

	// Start worker
	go func() {
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Printf("[worker] stopped: %v\n", err)
		}
	}()

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName: "Enricher Engine",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})

	deps := server.Dependencies{
		Job:    jobSvc,
		Enrich: enrichSvc,
		Mapper: mapSvc,
		Redis:  redisSvc,
		DB:     dbCheck,
	}
	healthHandler := server.RegisterRoutes(app, deps)

	// Mark application as ready after all services are initialized
	go func() {
		time.Sleep(2 * time.Second)
		healthHandler.SetReady()
	}()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		asynqServer.Shutdown()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
