package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backends for the hold store and the booking ledger.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port            string
	GinMode         string
	APIVersion      string
	APIPrefix       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int

	// Flight catalog
	Catalog CatalogConfig

	// Holds, reclaim and booking ledger
	Reservation ReservationConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Kafka event publishing
	Kafka KafkaConfig

	// Rate limiting
	RateLimit RateLimitConfig

	CORS CORSConfig

	// Logging
	LogLevel string
}

// CatalogConfig points at the flights dataset. An empty DataPath means the
// embedded dataset is used.
type CatalogConfig struct {
	DataPath string
}

// ReservationConfig holds hold/booking tuning
type ReservationConfig struct {
	StoreBackend   string
	LedgerBackend  string
	StoreShards    int
	DefaultHoldTTL time.Duration
	MinHoldTTL     time.Duration
	MaxHoldTTL     time.Duration

	ReclaimInterval  time.Duration
	ReclaimBatchSize int
	HoldRetention    time.Duration

	ConfirmationCodeLength int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string
	PoolSize int

	BookingCacheTTL time.Duration
}

// KafkaConfig holds the event producer configuration
type KafkaConfig struct {
	Enabled    bool
	Brokers    []string
	Topic      string
	ClientID   string
	QueueSize  int
	MaxRetries int
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `json:"enabled"`
	WindowDuration  time.Duration `json:"window_duration"`
	DefaultRequests int           `json:"default_requests"`
	PublicRequests  int           `json:"public_requests"`
	HoldRequests    int           `json:"hold_requests"`
	BookingRequests int           `json:"booking_requests"`
	WhitelistedIPs  []string      `json:"whitelisted_ips"`
}

// CORSConfig holds allowed origins for browser clients
type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:            getEnv("PORT", "8000"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		APIVersion:      getEnv("API_VERSION", "v1"),
		APIPrefix:       getEnv("API_PREFIX", "/api"),
		ReadTimeout:     getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxHeaderBytes:  getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		Catalog: CatalogConfig{
			DataPath: getEnv("FLIGHTS_DATA_PATH", ""),
		},

		Reservation: ReservationConfig{
			StoreBackend:   strings.ToLower(getEnv("HOLD_STORE", BackendMemory)),
			LedgerBackend:  strings.ToLower(getEnv("LEDGER_BACKEND", BackendMemory)),
			StoreShards:    getIntEnv("HOLD_STORE_SHARDS", 64),
			DefaultHoldTTL: getDurationEnv("HOLD_TTL", 600*time.Second),
			MinHoldTTL:     getDurationEnv("HOLD_MIN_TTL", 1*time.Second),
			MaxHoldTTL:     getDurationEnv("HOLD_MAX_TTL", 30*time.Minute),

			ReclaimInterval:  getDurationEnv("RECLAIM_INTERVAL", 500*time.Millisecond),
			ReclaimBatchSize: getIntEnv("RECLAIM_BATCH_SIZE", 100),
			HoldRetention:    getDurationEnv("HOLD_RETENTION", 1*time.Hour),

			ConfirmationCodeLength: getIntEnv("CONFIRMATION_CODE_LENGTH", 8),
		},

		// Database configuration
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "flightdesk"),
			User:            getEnv("DB_USER", "flightdesk"),
			Password:        getEnv("DB_PASSWORD", "flightdesk"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		},

		// Redis configuration
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			PoolSize: getIntEnv("REDIS_POOL_SIZE", 20),

			BookingCacheTTL: getDurationEnv("BOOKING_CACHE_TTL", 1*time.Hour),
		},

		Kafka: KafkaConfig{
			Enabled:    getBoolEnv("KAFKA_ENABLED", false),
			Brokers:    getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:      getEnv("KAFKA_TOPIC", "reservation-events"),
			ClientID:   getEnv("KAFKA_CLIENT_ID", "flightdesk"),
			QueueSize:  getIntEnv("EVENT_QUEUE_SIZE", 1024),
			MaxRetries: getIntEnv("KAFKA_MAX_RETRIES", 5),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:         getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:  getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests: getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:  getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 120),
			HoldRequests:    getIntEnv("RATE_LIMIT_HOLD_REQUESTS", 20),
			BookingRequests: getIntEnv("RATE_LIMIT_BOOKING_REQUESTS", 60),
			WhitelistedIPs:  getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		CORS: CORSConfig{
			AllowedOrigins: getStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// Validate reports configuration combinations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	r := c.Reservation

	switch r.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if !c.Redis.Enabled {
			errs = append(errs, errors.New("HOLD_STORE=redis requires REDIS_ENABLED=true"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown HOLD_STORE %q", r.StoreBackend))
	}

	switch r.LedgerBackend {
	case BackendMemory, BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER_BACKEND %q", r.LedgerBackend))
	}

	if r.MinHoldTTL <= 0 || r.MinHoldTTL > r.DefaultHoldTTL || r.DefaultHoldTTL > r.MaxHoldTTL {
		errs = append(errs, fmt.Errorf("hold TTLs must satisfy 0 < min (%s) <= default (%s) <= max (%s)",
			r.MinHoldTTL, r.DefaultHoldTTL, r.MaxHoldTTL))
	}
	if r.ReclaimInterval <= 0 || r.ReclaimInterval >= r.MinHoldTTL {
		errs = append(errs, fmt.Errorf("RECLAIM_INTERVAL (%s) must be positive and shorter than HOLD_MIN_TTL (%s)",
			r.ReclaimInterval, r.MinHoldTTL))
	}
	if r.ConfirmationCodeLength < 6 {
		errs = append(errs, errors.New("CONFIRMATION_CODE_LENGTH must be at least 6"))
	}
	if r.StoreShards <= 0 {
		errs = append(errs, errors.New("HOLD_STORE_SHARDS must be positive"))
	}

	return errors.Join(errs...)
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv accepts Go durations ("90s", "2m") or bare seconds ("600").
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
