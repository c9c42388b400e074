// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Oracle   OracleConfig
	Policy   PolicyConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type OracleConfig struct {
	ProviderURL string
	Timeout     time.Duration
	CacheTTL    time.Duration
}

// TierLimits holds the transaction limits for one verification tier, as
// decimal strings in whole-token units.
type TierLimits struct {
	SingleLimit string
	DailyLimit  string
}

// PolicyConfig carries the per-tier limit table and the initial state of the
// global enforcement flag.
type PolicyConfig struct {
	EnforcementEnabled bool
	None               TierLimits
	Basic              TierLimits
	Enhanced           TierLimits
	Premium            TierLimits
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      normalizeRedisURL(getEnv("REDIS_URL", "localhost:6379")),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-this-secret"),
		},
		Oracle: OracleConfig{
			ProviderURL: getEnv("ORACLE_PROVIDER_URL", ""),
			Timeout:     getDurationEnv("ORACLE_TIMEOUT", 5*time.Second),
			CacheTTL:    getDurationEnv("ORACLE_CACHE_TTL", 1*time.Minute),
		},
		Policy: PolicyConfig{
			EnforcementEnabled: getBoolEnv("ENFORCEMENT_ENABLED", true),
			None: TierLimits{
				SingleLimit: getEnv("LIMIT_NONE_SINGLE", "0"),
				DailyLimit:  getEnv("LIMIT_NONE_DAILY", "0"),
			},
			Basic: TierLimits{
				SingleLimit: getEnv("LIMIT_BASIC_SINGLE", "5000"),
				DailyLimit:  getEnv("LIMIT_BASIC_DAILY", "10000"),
			},
			Enhanced: TierLimits{
				SingleLimit: getEnv("LIMIT_ENHANCED_SINGLE", "50000"),
				DailyLimit:  getEnv("LIMIT_ENHANCED_DAILY", "100000"),
			},
			Premium: TierLimits{
				SingleLimit: getEnv("LIMIT_PREMIUM_SINGLE", "500000"),
				DailyLimit:  getEnv("LIMIT_PREMIUM_DAILY", "1000000"),
			},
		},
	}
}

// ValidateCore checks the settings the service cannot run without.
func (c *Config) ValidateCore() error {
	if c.Database.URL == "" {
		return errMissing("DATABASE_URL")
	}
	if c.JWT.Secret == "" || c.JWT.Secret == "change-this-secret" {
		return errMissing("JWT_SECRET")
	}
	return nil
}

type missingError string

func (e missingError) Error() string { return string(e) + " must be set" }

func errMissing(name string) error { return missingError(name) }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func normalizeRedisURL(url string) string {
	// Strip redis:// or redis+tls:// scheme if present
	if strings.HasPrefix(url, "redis+tls://") {
		return url[len("redis+tls://"):]
	}
	if strings.HasPrefix(url, "redis://") {
		return url[len("redis://"):]
	}
	return url
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultValue
}
