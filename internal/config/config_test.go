package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))
	if cfg.Port != 8000 {
		t.Fatalf("expected default port 8000, got %d", cfg.Port)
	}
	if cfg.BroadcastInterval != 2*time.Second {
		t.Fatalf("expected 2s broadcast interval, got %s", cfg.BroadcastInterval)
	}
	if !cfg.UsingDefaultSecret() {
		t.Fatalf("expected development secret when none configured")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(envPort, "9090")
	t.Setenv(envCORSOrigins, "http://a.test, http://b.test ,")
	t.Setenv(envWorkers, "2")
	t.Setenv(envBroadcastInterval, "750ms")
	t.Setenv(envJWTExpireMinutes, "30")
	t.Setenv(envUseTLS, "true")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))
	if cfg.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Port)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected CORS origins: %#v", cfg.CORSOrigins)
	}
	if cfg.Workers != 2 {
		t.Fatalf("expected 2 workers, got %d", cfg.Workers)
	}
	if cfg.BroadcastInterval != 750*time.Millisecond {
		t.Fatalf("expected 750ms interval, got %s", cfg.BroadcastInterval)
	}
	if cfg.TokenExpiry != 30*time.Minute {
		t.Fatalf("expected 30m expiry, got %s", cfg.TokenExpiry)
	}
	if !cfg.TLSEnabled {
		t.Fatalf("expected TLS enabled")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("HOSTWATCH_ADMIN_USER=root-operator\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	// godotenv never overrides variables that are already set, so make sure it is unset.
	t.Setenv(envAdminUser, "")
	os.Unsetenv(envAdminUser)

	cfg := Load(path)
	if cfg.AdminUser != "root-operator" {
		t.Fatalf("expected admin user from .env, got %q", cfg.AdminUser)
	}
	os.Unsetenv(envAdminUser)
}
