package config

import (
	"os"
	"testing"
	"time"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestParseDefaults(t *testing.T) {
	unsetEnv(t, "APP_ENV", "PORT", "QUEUE_BACKEND", "SCORE_QUEUE_KEY", "SCORE_CACHE_TTL",
		"SCHEDULER_INTERVAL", "SCHEDULER_LOOKBACK_DAYS")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AppEnv != "dev" || cfg.Port != 8080 {
		t.Fatalf("unexpected defaults: env=%q port=%d", cfg.AppEnv, cfg.Port)
	}
	if cfg.Queues.Backend != "redis" || cfg.Queues.Score != "score_jobs" {
		t.Fatalf("unexpected queue defaults: %+v", cfg.Queues)
	}
	if cfg.Cache.ScoreTTL != 10*time.Minute {
		t.Fatalf("unexpected cache ttl: %v", cfg.Cache.ScoreTTL)
	}
	if cfg.Scheduler.Interval != 5*time.Minute || cfg.Scheduler.LookbackDays != 3 {
		t.Fatalf("unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("QUEUE_BACKEND", "rabbitmq")
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("SCORE_CACHE_TTL", "30s")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9000 || cfg.Queues.Backend != "rabbitmq" || cfg.Auth.JWTSecret != "secret" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Cache.ScoreTTL != 30*time.Second {
		t.Fatalf("unexpected cache ttl: %v", cfg.Cache.ScoreTTL)
	}
}

func TestParseRejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "eighty")
	if _, err := Parse(); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}
