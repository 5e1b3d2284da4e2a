package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pest")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "http://localhost:4200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected config to load, got %v", err)
	}
	if cfg.DeclineMinNotes != 10 {
		t.Fatalf("expected decline min notes 10, got %d", cfg.DeclineMinNotes)
	}
	if cfg.SubmitLockTTL != 30*time.Second {
		t.Fatalf("expected submit lock ttl 30s, got %s", cfg.SubmitLockTTL)
	}
	if cfg.ServiceReminderLeadTime != 24*time.Hour {
		t.Fatalf("expected reminder lead time 24h, got %s", cfg.ServiceReminderLeadTime)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing DATABASE_URL to fail")
	}
}

func TestLoadRejectsWildcardWithCredentials(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pest")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected wildcard origins with credentials to fail")
	}
}

func TestMustIntFallsBackOnGarbage(t *testing.T) {
	if got := mustInt("abc", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
	if got := mustInt(" 12 ", 7); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
}
