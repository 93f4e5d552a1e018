package app

import (
	"encoding/base64"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/pallidlabs/authgate/pkg/jwtx"
)

type Config struct {
	Secret           string // Required: HMAC signing key, base64 or raw
	Issuer           string // Issuer claim for tokens (default: authgate)
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	AuthorizationKey string // Optional: shared key for the role-elevation flow; empty disables it

	RateLimitRequests int           // Requests allowed per window per client (default: 60)
	RateLimitWindow   time.Duration // Fixed window length (default: 1m)
	RedisAddr         string        // Optional: shared counter store; empty uses in-process counters

	DatabaseFile         string
	Env                  string // Environment (dev, staging, prod) (default: dev)
	LogLevel             string // Log level (debug, info, warn, error) (default: info)
	LogFormat            string // Log format (json, text) (default: json)
	Port                 int    // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration
	HousekeepingInterval time.Duration
}

func LoadConfig() Config {
	return Config{
		Secret:           os.Getenv("AUTHGATE_SECRET"),
		Issuer:           getEnvOrDefault("AUTHGATE_ISSUER", "authgate"),
		AccessTTL:        getEnvDurationOrDefault("AUTHGATE_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:       getEnvDurationOrDefault("AUTHGATE_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		AuthorizationKey: os.Getenv("AUTHGATE_AUTHORIZATION_KEY"),

		RateLimitRequests: getEnvIntOrDefault("RATELIMIT_REQUESTS", 60),
		RateLimitWindow:   getEnvDurationOrDefault("RATELIMIT_WINDOW", time.Minute),
		RedisAddr:         os.Getenv("REDIS_ADDR"),

		DatabaseFile:         getEnvOrDefault("DATABASE_FILE", "authgate.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}
}

// SigningKey decodes the configured secret. Base64 (standard encoding) is
// accepted for parity with existing deployments; anything that does not
// decode is used as raw bytes.
func (c Config) SigningKey() ([]byte, error) {
	if c.Secret == "" {
		return nil, errors.New("AUTHGATE_SECRET must be set")
	}
	if key, err := base64.StdEncoding.DecodeString(c.Secret); err == nil {
		return key, nil
	}
	return []byte(c.Secret), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are read as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
