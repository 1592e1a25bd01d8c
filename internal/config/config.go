// Package config loads hostwatch settings from an optional .env file and the
// process environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envPort              = "HOSTWATCH_PORT"
	envJWTSecret         = "HOSTWATCH_JWT_SECRET"
	envJWTExpireMinutes  = "HOSTWATCH_JWT_EXPIRE_MINUTES"
	envAdminUser         = "HOSTWATCH_ADMIN_USER"
	envAdminPass         = "HOSTWATCH_ADMIN_PASS"
	envAdminPassHash     = "HOSTWATCH_ADMIN_PASS_HASH"
	envCORSOrigins       = "HOSTWATCH_CORS_ORIGINS"
	envLogFile           = "HOSTWATCH_LOG_FILE"
	envLogLevel          = "HOSTWATCH_LOG_LEVEL"
	envAuditDB           = "HOSTWATCH_AUDIT_DB"
	envWorkers           = "HOSTWATCH_WORKERS"
	envBroadcastInterval = "HOSTWATCH_BROADCAST_INTERVAL"
	envSlowRequestMS     = "HOSTWATCH_SLOW_REQUEST_MS"
	envUseTLS            = "HOSTWATCH_USE_TLS"
	envTLSCert           = "HOSTWATCH_TLS_CERT"
	envTLSKey            = "HOSTWATCH_TLS_KEY"

	// DefaultJWTSecret is only suitable for development; Load reports whether it is in use.
	DefaultJWTSecret = "your-secret-key-change-in-production"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	Port              int
	JWTSecret         string
	TokenExpiry       time.Duration
	AdminUser         string
	AdminPassword     string
	AdminPasswordHash string
	CORSOrigins       []string
	LogFile           string
	LogLevel          string
	AuditDBPath       string
	Workers           int
	BroadcastInterval time.Duration
	SlowRequest       time.Duration
	TLSEnabled        bool
	TLSCertPath       string
	TLSKeyPath        string
}

// Default returns the configuration used when no environment overrides exist.
func Default() *Config {
	return &Config{
		Port:              8000,
		JWTSecret:         DefaultJWTSecret,
		TokenExpiry:       24 * time.Hour,
		AdminUser:         "admin",
		CORSOrigins:       []string{"*"},
		LogLevel:          "info",
		Workers:           1,
		BroadcastInterval: 2 * time.Second,
		SlowRequest:       500 * time.Millisecond,
	}
}

// Load reads .env files (if present) and then the environment on top of the defaults.
// Missing files are not an error; values in the real environment win over .env.
func Load(files ...string) *Config {
	_ = godotenv.Load(files...)

	cfg := Default()
	cfg.Port = envInt(envPort, cfg.Port)
	cfg.JWTSecret = envString(envJWTSecret, cfg.JWTSecret)
	if minutes := envInt(envJWTExpireMinutes, 0); minutes > 0 {
		cfg.TokenExpiry = time.Duration(minutes) * time.Minute
	}
	cfg.AdminUser = envString(envAdminUser, cfg.AdminUser)
	cfg.AdminPassword = os.Getenv(envAdminPass)
	cfg.AdminPasswordHash = os.Getenv(envAdminPassHash)
	if raw := strings.TrimSpace(os.Getenv(envCORSOrigins)); raw != "" {
		cfg.CORSOrigins = splitList(raw)
	}
	cfg.LogFile = os.Getenv(envLogFile)
	cfg.LogLevel = envString(envLogLevel, cfg.LogLevel)
	cfg.AuditDBPath = os.Getenv(envAuditDB)
	cfg.Workers = envInt(envWorkers, cfg.Workers)
	if d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(envBroadcastInterval))); err == nil && d > 0 {
		cfg.BroadcastInterval = d
	}
	if ms := envInt(envSlowRequestMS, 0); ms > 0 {
		cfg.SlowRequest = time.Duration(ms) * time.Millisecond
	}
	cfg.TLSEnabled = envBool(envUseTLS)
	cfg.TLSCertPath = os.Getenv(envTLSCert)
	cfg.TLSKeyPath = os.Getenv(envTLSKey)
	return cfg
}

// UsingDefaultSecret reports whether tokens are signed with the development secret.
func (c *Config) UsingDefaultSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

func envString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string) bool {
	val := os.Getenv(key)
	if val == "" {
		return false
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
