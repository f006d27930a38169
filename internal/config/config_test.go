package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("AUTHLINE_PG_DSN", "postgres://localhost:5432/authline")
	t.Setenv("AUTHLINE_JWT_SECRET", strings.Repeat("s", 32))
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Fatalf("unexpected access ttl: %v", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 720*time.Hour {
		t.Fatalf("unexpected refresh ttl: %v", cfg.RefreshTTL())
	}
	if !cfg.RunMigrations {
		t.Fatal("expected migrations enabled by default")
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("AUTHLINE_PG_DSN", "postgres://localhost:5432/authline")
	t.Setenv("AUTHLINE_JWT_SECRET", "short")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestLoadRejectsInvertedTTLs(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTHLINE_ACCESS_TTL_MS", "900000")
	t.Setenv("AUTHLINE_REFRESH_TTL_MS", "1000")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when refresh ttl does not exceed access ttl")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTHLINE_ACCESS_TTL_MS", "60000")
	t.Setenv("AUTHLINE_TOKEN_SWEEP_INTERVAL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AccessTTL() != time.Minute {
		t.Fatalf("unexpected access ttl: %v", cfg.AccessTTL())
	}
	if cfg.SweepInterval != 30*time.Minute {
		t.Fatalf("unexpected sweep interval: %v", cfg.SweepInterval)
	}
}
