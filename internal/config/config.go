package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/SINTT/TODO/internal/logger"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type RateLimit struct {
	Max    int
	Window time.Duration
}

type Config struct {
	AppPort    string
	AppVersion string
	GinMode    string

	StorageDriver string
	DatabaseURL   string
	SQLitePath    string

	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int
	OpTimeout  time.Duration
	Location   *time.Location

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APIRateLimit      RateLimit
	AuthRateLimit     RateLimit
	MutationRateLimit RateLimit

	LogLevel string
	LogJSON  bool
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// FromEnv builds the config from getenv. Missing optional keys take their
// defaults; malformed numbers fall back to defaults as well.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		AppPort:       stringOr(getenv("APP_PORT"), "8080"),
		AppVersion:    stringOr(getenv("APP_VERSION"), "dev"),
		GinMode:       getenv("GIN_MODE"),
		StorageDriver: strings.ToLower(stringOr(getenv("STORAGE_DRIVER"), DriverPostgres)),
		DatabaseURL:   getenv("DATABASE_URL"),
		SQLitePath:    stringOr(getenv("SQLITE_PATH"), "data/tasks.db"),
		JWTSecret:     getenv("JWT_SECRET"),
		JWTTTL:        time.Duration(positiveInt(getenv("JWT_TTL_HOURS"), 24)) * time.Hour,
		BcryptCost:    positiveInt(getenv("BCRYPT_COST"), 10),
		OpTimeout:     time.Duration(positiveInt(getenv("OP_TIMEOUT_MS"), 5000)) * time.Millisecond,
		RedisAddr:     getenv("REDIS_ADDR"),
		RedisPassword: getenv("REDIS_PASSWORD"),
		LogLevel:      strings.ToLower(stringOr(getenv("LOG_LEVEL"), "info")),
		LogJSON:       getenv("LOG_JSON") == "true",
	}

	if v := getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("REDIS_DB must be a non-negative number, got %q", v)
		}
		cfg.RedisDB = n
	}

	// лимиты: запросов за окно (секунды)
	cfg.APIRateLimit = rateLimit(getenv, "API_RATE_LIMIT", "API_RATE_WINDOW_SECONDS", 120, 60)
	cfg.AuthRateLimit = rateLimit(getenv, "AUTH_RATE_LIMIT", "AUTH_RATE_WINDOW_SECONDS", 10, 60)
	cfg.MutationRateLimit = rateLimit(getenv, "MUTATION_RATE_LIMIT", "MUTATION_RATE_WINDOW_SECONDS", 60, 60)

	loc, err := time.LoadLocation(stringOr(getenv("TIME_ZONE"), "UTC"))
	if err != nil {
		return nil, fmt.Errorf("TIME_ZONE: %w", err)
	}
	cfg.Location = loc

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is not set")
		}
	case DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	return nil
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func positiveInt(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func rateLimit(getenv func(string) string, maxKey, windowKey string, defMax, defWindow int) RateLimit {
	return RateLimit{
		Max:    positiveInt(getenv(maxKey), defMax),
		Window: time.Duration(positiveInt(getenv(windowKey), defWindow)) * time.Second,
	}
}
