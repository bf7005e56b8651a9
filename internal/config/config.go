package config

import (
	"os"
	"strconv"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	RedisAddr     string
	RedisPassword string
	DatabaseURL   string

	// WorkerConcurrency bounds how many items are processed at once.
	WorkerConcurrency int
	// RequestDelayMs is the fixed per-task pause before each fetch.
	RequestDelayMs int
	// TaskMaxRetries is the number of queue redeliveries after the first
	// attempt (2 redeliveries = 3 deliveries total).
	TaskMaxRetries int

	// SelectorRulesPath optionally points at a YAML extraction rule file.
	SelectorRulesPath string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func Load() Config {
	cfg := Config{
		AppEnv:        getenv("APP_ENV", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8082"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),

		WorkerConcurrency: getenvInt("WORKER_CONCURRENCY", 20),
		RequestDelayMs:    getenvInt("REQUEST_DELAY_MS", 500),
		TaskMaxRetries:    getenvInt("TASK_MAX_RETRIES", 2),

		SelectorRulesPath: os.Getenv("SELECTOR_RULES_PATH"),
	}
	return cfg
}
