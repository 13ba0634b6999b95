package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Serving
	ListenAddr  string // WebSocket server address
	MetricsAddr string // /metrics and /healthz address

	// Simulation
	TickInterval     time.Duration
	EventProbability float64
	EventDuration    int // ticks
	SummaryEvery     int // ticks between market summary logs, 0 disables
	Seed             int64

	// Sinks
	RedisAddr     string // empty disables the Redis publisher
	RedisPassword string
	SQLitePath    string // empty disables the history writer
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8765"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		TickInterval:     time.Duration(getEnvInt("TICK_INTERVAL_MS", 1000)) * time.Millisecond,
		EventProbability: getEnvFloat("EVENT_PROBABILITY", 0.10),
		EventDuration:    getEnvInt("EVENT_DURATION_TICKS", 10),
		SummaryEvery:     getEnvInt("SUMMARY_EVERY_TICKS", 10),
		Seed:             int64(getEnvInt("RNG_SEED", 0)),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/prices.db"),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid integer for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid float for %s: %q, using %g", key, v, fallback)
		return fallback
	}
	return f
}
