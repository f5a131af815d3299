package config

import (
	"os"
	"testing"
	"time"
)

func withEnv(t *testing.T, env map[string]string, fn func()) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	ResetForTesting()
	defer ResetForTesting()
	fn()
}

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	withEnv(t, map[string]string{}, func() {
		cfg := Load()

		if cfg.HTTPPort != "8080" {
			t.Errorf("expected default HTTP port 8080, got %q", cfg.HTTPPort)
		}
		if cfg.FeedMaxFailureCount != 3 {
			t.Errorf("expected default feed max failure count 3, got %d", cfg.FeedMaxFailureCount)
		}
		if cfg.TaskSchedulerInterval != 60*time.Second {
			t.Errorf("expected default scheduler interval 60s, got %v", cfg.TaskSchedulerInterval)
		}
		if cfg.WorkerConcurrency != 10 {
			t.Errorf("expected default worker concurrency 10, got %d", cfg.WorkerConcurrency)
		}
	})
}

func TestLoad_IsMemoizedAcrossCalls(t *testing.T) {
	withEnv(t, map[string]string{"FEEDCLOUD_HTTP_PORT": "9999"}, func() {
		first := Load()
		_ = os.Setenv("FEEDCLOUD_HTTP_PORT", "1111")
		second := Load()

		if second.HTTPPort != first.HTTPPort {
			t.Fatalf("Load should memoize: first=%q second=%q", first.HTTPPort, second.HTTPPort)
		}
	})
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	withEnv(t, map[string]string{
		"FEEDCLOUD_HTTP_PORT":              "9090",
		"FEEDCLOUD_FEED_MAX_FAILURE_COUNT": "5",
	}, func() {
		cfg := Load()

		if cfg.HTTPPort != "9090" {
			t.Errorf("expected overridden HTTP port 9090, got %q", cfg.HTTPPort)
		}
		if cfg.FeedMaxFailureCount != 5 {
			t.Errorf("expected overridden feed max failure count 5, got %d", cfg.FeedMaxFailureCount)
		}
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DatabaseURL:           "postgres://localhost/feedcloud",
			FeedMaxFailureCount:   3,
			TaskSchedulerInterval: 60 * time.Second,
			BackoffMinSeconds:     5,
			BackoffMaxSeconds:     3600,
			WorkerConcurrency:     10,
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		if err := Validate(base(), true); err != nil {
			t.Fatalf("expected valid config to pass, got %v", err)
		}
	})

	t.Run("strict mode requires DatabaseURL", func(t *testing.T) {
		cfg := base()
		cfg.DatabaseURL = ""
		if err := Validate(cfg, true); err == nil {
			t.Fatal("expected an error for empty DatabaseURL in strict mode")
		}
	})

	t.Run("non-strict mode tolerates empty DatabaseURL", func(t *testing.T) {
		cfg := base()
		cfg.DatabaseURL = ""
		if err := Validate(cfg, false); err != nil {
			t.Fatalf("expected non-strict mode to tolerate empty DatabaseURL, got %v", err)
		}
	})

	t.Run("rejects inconsistent backoff bounds", func(t *testing.T) {
		cfg := base()
		cfg.BackoffMinSeconds = 100
		cfg.BackoffMaxSeconds = 10
		if err := Validate(cfg, true); err == nil {
			t.Fatal("expected an error when BackoffMaxSeconds < BackoffMinSeconds")
		}
	})

	t.Run("rejects zero worker concurrency", func(t *testing.T) {
		cfg := base()
		cfg.WorkerConcurrency = 0
		if err := Validate(cfg, true); err == nil {
			t.Fatal("expected an error for zero worker concurrency")
		}
	})
}
