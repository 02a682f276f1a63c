package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds all runtime configuration for the execution service.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	Store           string
	PostgresDSN     string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	TradeChannel    string
	TradeTTL        time.Duration
	DispatchQueue   int
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file, then environment variables over
// defaults, and validates the result. Variables already set in the
// environment win over the .env file.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	} else {
		_ = godotenv.Load()
	}

	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	tradeTTL, err := getDuration("TRADE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid TRADE_TTL: %w", err)
	}
	queue, err := getInt("DISPATCH_QUEUE", 1024)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_QUEUE: %w", err)
	}
	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	cfg := &Config{
		HTTPAddr:        getStr("HTTP_ADDR", ":8080"),
		LogLevel:        getStr("LOG_LEVEL", "info"),
		Store:           getStr("STORE", StoreMemory),
		PostgresDSN:     os.Getenv("PG_DSN"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         redisDB,
		TradeChannel:    getStr("TRADE_CHANNEL", "trades"),
		TradeTTL:        tradeTTL,
		DispatchQueue:   queue,
		ShutdownTimeout: shutdownTimeout,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("PG_DSN is required when STORE=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("invalid STORE: %q, must be %s or %s", c.Store, StoreMemory, StorePostgres)
	}
	if c.DispatchQueue <= 0 {
		return fmt.Errorf("invalid DISPATCH_QUEUE: %d, must be positive", c.DispatchQueue)
	}
	if c.TradeTTL <= 0 {
		return fmt.Errorf("invalid TRADE_TTL: %s, must be positive", c.TradeTTL)
	}
	return nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}
