package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Graph     GraphConfig
	NATS      NATSConfig
	Redis     RedisConfig
	Fraud     FraudConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// GraphConfig holds graph store configuration
type GraphConfig struct {
	Driver   string // "neo4j" or "memory"
	URI      string
	User     string
	Password string
	Database string
	Timeout  int // seconds, per query
	Breaker  BreakerConfig
}

// NATSConfig holds message bus configuration
type NATSConfig struct {
	URL            string
	ConnectTimeout int // seconds
	PublishTimeout int // seconds
	MaxReconnects  int
	Breaker        BreakerConfig
}

// BreakerConfig tunes the circuit breaker in front of one dependency
type BreakerConfig struct {
	IntervalSeconds  int // closed-state counting window
	TimeoutSeconds   int // how long the breaker stays open
	FailureThreshold int
	SuccessThreshold int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// FraudConfig holds scoring and alerting knobs
type FraudConfig struct {
	AlertThreshold     float64
	HighThreshold      float64
	PublishMaxAttempts int
	ResyncConcurrency  int
	LiveScoreCacheTTL  int // seconds, 0 disables caching
}

// RateLimitConfig throttles expensive operator endpoints. It needs Redis.
type RateLimitConfig struct {
	Enabled       bool
	WindowSeconds int
	ResyncLimit   int // resync requests per window per client
	RedisPrefix   string
}

// Window returns the rate limit window as a duration
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

// Load reads configuration from the environment, after a best-effort .env load
func Load(serviceName string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "claims"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Graph: GraphConfig{
			Driver:   getEnv("GRAPH_DRIVER", "neo4j"),
			URI:      getEnv("NEO4J_URI", "bolt://neo4j:7687"),
			User:     getEnv("NEO4J_USER", "neo4j"),
			Password: getEnv("NEO4J_PASSWORD", "password123"),
			Database: getEnv("NEO4J_DATABASE", ""),
			Timeout:  getEnvAsInt("GRAPH_TIMEOUT_SECONDS", 5),
			Breaker:  loadBreaker("GRAPH", 30),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://nats:4222"),
			ConnectTimeout: getEnvAsInt("NATS_CONNECT_TIMEOUT_SECONDS", 5),
			PublishTimeout: getEnvAsInt("NATS_PUBLISH_TIMEOUT_SECONDS", 3),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			Breaker:        loadBreaker("NATS", 15),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Fraud: FraudConfig{
			AlertThreshold:     getEnvAsFloat("FRAUD_ALERT_THRESHOLD", 30),
			HighThreshold:      getEnvAsFloat("FRAUD_HIGH_THRESHOLD", 70),
			PublishMaxAttempts: getEnvAsInt("FRAUD_PUBLISH_MAX_ATTEMPTS", 3),
			ResyncConcurrency:  getEnvAsInt("FRAUD_RESYNC_CONCURRENCY", 4),
			LiveScoreCacheTTL:  getEnvAsInt("LIVE_SCORE_CACHE_TTL_SECONDS", 15),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", true),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			ResyncLimit:   getEnvAsInt("RATE_LIMIT_RESYNC", 2),
			RedisPrefix:   getEnv("RATE_LIMIT_REDIS_PREFIX", "rl"),
		},
		Tracing: TracingConfig{
			Enabled:  getEnvAsBool("TRACING_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.Graph.Driver != "neo4j" && c.Graph.Driver != "memory":
		return fmt.Errorf("unsupported GRAPH_DRIVER %q", c.Graph.Driver)
	case c.Fraud.AlertThreshold < 0:
		return fmt.Errorf("FRAUD_ALERT_THRESHOLD (%v) must not be negative", c.Fraud.AlertThreshold)
	case c.Fraud.HighThreshold < c.Fraud.AlertThreshold:
		return fmt.Errorf("FRAUD_HIGH_THRESHOLD (%v) must not be below FRAUD_ALERT_THRESHOLD (%v)",
			c.Fraud.HighThreshold, c.Fraud.AlertThreshold)
	case c.Fraud.ResyncConcurrency < 1:
		return fmt.Errorf("FRAUD_RESYNC_CONCURRENCY must be at least 1, got %d", c.Fraud.ResyncConcurrency)
	}
	return nil
}

// DSN returns the keyword/value connection string pgxpool parses
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// URL returns the database connection string in URL form, as expected by migrate.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns host:port for the Redis client
func (c *RedisConfig) RedisAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func loadBreaker(prefix string, openSeconds int) BreakerConfig {
	return BreakerConfig{
		IntervalSeconds:  getEnvAsInt(prefix+"_BREAKER_INTERVAL_SECONDS", 60),
		TimeoutSeconds:   getEnvAsInt(prefix+"_BREAKER_TIMEOUT_SECONDS", openSeconds),
		FailureThreshold: getEnvAsInt(prefix+"_BREAKER_FAILURE_THRESHOLD", 5),
		SuccessThreshold: getEnvAsInt(prefix+"_BREAKER_SUCCESS_THRESHOLD", 1),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// getEnvParsed returns parse(value of key), or fallback when the variable is
// unset or does not parse.
func getEnvParsed[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsInt(key string, fallback int) int {
	return getEnvParsed(key, fallback, strconv.Atoi)
}

func getEnvAsFloat(key string, fallback float64) float64 {
	return getEnvParsed(key, fallback, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func getEnvAsBool(key string, fallback bool) bool {
	return getEnvParsed(key, fallback, strconv.ParseBool)
}
