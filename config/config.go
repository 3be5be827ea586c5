/*
Package config loads server configuration from the environment.

SOURCES (later wins):
  1. Built-in defaults
  2. A .env file in the working directory, if present
  3. Process environment

VARIABLES:
  PORT              HTTP port (default 8080)
  DATABASE_DRIVER   sqlite3 | postgres (default sqlite3)
  DATABASE_URL      SQLite path or PostgreSQL DSN (default ledger.db)
  JWT_SECRET        HMAC key for bearer tokens; empty trusts X-User-ID
  MESSENGER         log | kafka | redis (default log)
  KAFKA_BROKERS     Comma-separated broker list
  KAFKA_TOPIC       Notification topic (default ledger.notifications)
  REDIS_ADDR        Redis address (default localhost:6379)
  REDIS_STREAM      Notification stream (default ledger:notifications)
  STATS_TIMEOUT     Default deadline for stats and revenue (default 5s)
  DISPATCH_TIMEOUT  Deadline for one notification delivery (default 10s)
  LOG_LEVEL         debug | info | warn | error (default info)
  CORS_ORIGINS      Comma-separated allowed origins
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	MessengerLog   = "log"
	MessengerKafka = "kafka"
	MessengerRedis = "redis"
)

// Config is the resolved server configuration.
type Config struct {
	Port            int
	DatabaseDriver  string
	DatabaseURL     string
	JWTSecret       string
	Messenger       string
	KafkaBrokers    []string
	KafkaTopic      string
	RedisAddr       string
	RedisStream     string
	StatsTimeout    time.Duration
	DispatchTimeout time.Duration
	LogLevel        string
	CORSOrigins     []string
}

// Load reads .env (if any) and the environment.
func Load() (Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the process environment only.
func FromEnv() (Config, error) {
	c := Config{
		DatabaseDriver: env("DATABASE_DRIVER", "sqlite3"),
		DatabaseURL:    env("DATABASE_URL", "ledger.db"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		Messenger:      strings.ToLower(env("MESSENGER", MessengerLog)),
		KafkaBrokers:   list(env("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:     env("KAFKA_TOPIC", "ledger.notifications"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisStream:    env("REDIS_STREAM", "ledger:notifications"),
		LogLevel:       strings.ToLower(env("LOG_LEVEL", "info")),
		CORSOrigins:    list(env("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")),
	}

	var err error
	if c.Port, err = strconv.Atoi(env("PORT", "8080")); err != nil {
		return Config{}, fmt.Errorf("invalid PORT: %w", err)
	}
	if c.StatsTimeout, err = time.ParseDuration(env("STATS_TIMEOUT", "5s")); err != nil {
		return Config{}, fmt.Errorf("invalid STATS_TIMEOUT: %w", err)
	}
	if c.DispatchTimeout, err = time.ParseDuration(env("DISPATCH_TIMEOUT", "10s")); err != nil {
		return Config{}, fmt.Errorf("invalid DISPATCH_TIMEOUT: %w", err)
	}
	return c, c.Validate()
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.Messenger {
	case MessengerLog, MessengerRedis:
	case MessengerKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("MESSENGER=kafka requires KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("invalid MESSENGER %q", c.Messenger)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.StatsTimeout <= 0 {
		return fmt.Errorf("STATS_TIMEOUT must be positive")
	}
	return nil
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func list(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
