package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Non-production fallbacks for the credential vault. Never accepted in production.
const (
	DefaultEncryptionKey  = "default-key-change-in-production!"
	DefaultEncryptionSalt = "salt"
)

// Minimum secret lengths enforced in production
const (
	minJWTSecretLength      = 32
	minEncryptionKeyLength  = 32
	minEncryptionSaltLength = 16
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Vault         VaultConfig
	Gateway       GatewayConfig
	CORS          CORSConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	// TrustProxy takes the client address from X-Forwarded-For and X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL or POSTGRES_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	RunMigrations    bool
}

// AuthConfig holds session token and Google sign-in configuration
type AuthConfig struct {
	JWTSecret      string
	TokenTTL       time.Duration
	GoogleClientID string
	GoogleJWKSURL  string
	CookieName     string
}

// VaultConfig holds the server-wide secret material for API key encryption
type VaultConfig struct {
	EncryptionKey  string
	EncryptionSalt string
}

// GatewayConfig holds outbound provider call settings
type GatewayConfig struct {
	HTTPTimeout time.Duration
	MaxFanOut   int
	Referer     string
}

// CORSConfig holds allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig holds per-scope request limits applied per client IP
type RateLimitConfig struct {
	Enabled         bool
	APIRequests     int
	APIWindow       time.Duration
	AuthRequests    int
	AuthWindow      time.Duration
	AskRequests     int
	AskWindow       time.Duration
	CleanupInterval time.Duration
	Retention       time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnvironment(),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 80*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			MaxBodyBytes:    int64(getEnvAsInt("SERVER_MAX_BODY_BYTES", 10*1024)),
			TrustProxy:      getEnvAsBool("TRUST_PROXY", false),
		},
		Database: loadDatabaseConfig(),
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", ""),
			TokenTTL:       getEnvAsDuration("JWT_EXPIRES_IN", 7*24*time.Hour),
			GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleJWKSURL:  getEnv("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
			CookieName:     getEnv("AUTH_COOKIE_NAME", "auth_token"),
		},
		Vault: VaultConfig{
			EncryptionKey:  getEnv("ENCRYPTION_KEY", ""),
			EncryptionSalt: getEnv("ENCRYPTION_SALT", ""),
		},
		Gateway: GatewayConfig{
			HTTPTimeout: getEnvAsDuration("GATEWAY_HTTP_TIMEOUT", 60*time.Second),
			MaxFanOut:   getEnvAsInt("GATEWAY_MAX_FANOUT", 3),
			Referer:     getEnv("APP_REFERER", "https://ai-pick.app"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:         getEnvAsBool("RATE_LIMIT_ENABLED", true),
			APIRequests:     getEnvAsInt("RATE_LIMIT_API_REQUESTS", 100),
			APIWindow:       getEnvAsDuration("RATE_LIMIT_API_WINDOW", 15*time.Minute),
			AuthRequests:    getEnvAsInt("RATE_LIMIT_AUTH_REQUESTS", 10),
			AuthWindow:      getEnvAsDuration("RATE_LIMIT_AUTH_WINDOW", 15*time.Minute),
			AskRequests:     getEnvAsInt("RATE_LIMIT_ASK_REQUESTS", 10),
			AskWindow:       getEnvAsDuration("RATE_LIMIT_ASK_WINDOW", time.Minute),
			CleanupInterval: getEnvAsDuration("RATE_LIMIT_CLEANUP_INTERVAL", time.Hour),
			Retention:       getEnvAsDuration("RATE_LIMIT_RETENTION", 24*time.Hour),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.IsProduction() {
		if len(c.Auth.JWTSecret) < minJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters in production", minJWTSecretLength)
		}
		if len(c.Vault.EncryptionKey) < minEncryptionKeyLength {
			return fmt.Errorf("ENCRYPTION_KEY must be at least %d characters in production", minEncryptionKeyLength)
		}
		if len(c.Vault.EncryptionSalt) < minEncryptionSaltLength {
			return fmt.Errorf("ENCRYPTION_SALT must be at least %d characters in production", minEncryptionSaltLength)
		}
		if c.Auth.GoogleClientID == "" {
			return fmt.Errorf("GOOGLE_CLIENT_ID is required in production")
		}
	}

	if c.Gateway.MaxFanOut < 1 {
		return fmt.Errorf("gateway max fan-out must be positive")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password).
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, strings.TrimPrefix(u.Path, "/"))
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func loadDatabaseConfig() DatabaseConfig {
	pool := DatabaseConfig{
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		RunMigrations:   getEnvAsBool("DB_RUN_MIGRATIONS", true),
	}

	dbURL := getEnv("DATABASE_URL", getEnv("POSTGRES_URL", ""))
	if dbURL != "" {
		pool.ConnectionString = dbURL
		return pool
	}

	pool.Host = getEnv("DB_HOST", "localhost")
	pool.Port = getEnvAsInt("DB_PORT", 5432)
	pool.User = getEnv("DB_USER", "postgres")
	pool.Password = getEnv("DB_PASSWORD", "")
	pool.Database = getEnv("DB_NAME", "aipick")
	pool.SSLMode = getEnv("DB_SSLMODE", "disable")
	return pool
}

// getEnvironment reads ENVIRONMENT, falling back to NODE_ENV for existing deployments
func getEnvironment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return getEnv("NODE_ENV", "development")
}

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 3001)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 3001
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated variable, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
