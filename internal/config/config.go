package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage backend names accepted in STORAGE_BACKEND.
const (
	BackendMemory = "memory"
	BackendFS     = "fs"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	Port        string
	Environment string

	// ContentSource is a local file path or an http(s) URL.
	ContentSource string

	StorageBackend string
	StorageDir     string // fs backend
	RedisURL       string // redis backend
	SQLitePath     string // sqlite backend
	KeyPrefix      string

	BackupRetention int

	AutoSaveInterval  time.Duration
	HeartbeatInterval time.Duration
	IdleWarningAfter  time.Duration
	SessionTimeout    time.Duration

	EventsEnabled bool
}

func LoadConfig() (*Config, error) {
	// A .env file is a development convenience, not a requirement.
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ContentSource:   getEnv("CONTENT_SOURCE", "book.json"),
		StorageBackend:  getEnv("STORAGE_BACKEND", BackendFS),
		StorageDir:      getEnv("STORAGE_DIR", "./data"),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		SQLitePath:      getEnv("SQLITE_PATH", "progress.db"),
		KeyPrefix:       getEnv("KEY_PREFIX", ""),
		BackupRetention: getEnvInt("BACKUP_RETENTION", 3),

		AutoSaveInterval:  getEnvDuration("AUTOSAVE_INTERVAL", 30*time.Second),
		HeartbeatInterval: getEnvDuration("HEARTBEAT_INTERVAL", 60*time.Second),
		IdleWarningAfter:  getEnvDuration("IDLE_WARNING_AFTER", 5*time.Minute),
		SessionTimeout:    getEnvDuration("SESSION_TIMEOUT", 30*time.Minute),

		EventsEnabled: getEnvBool("EVENTS_ENABLED", true),
	}

	switch cfg.StorageBackend {
	case BackendMemory, BackendFS, BackendRedis, BackendSQLite:
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
