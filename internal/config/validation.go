package config

import (
	"fmt"
	"strings"
)

// Validate checks that a loaded Config is internally consistent. An empty
// DatabaseURL is an error only in strict mode, since an empty value there
// is fine for local development; BrokerURL is not checked in either mode.
func Validate(cfg *Config, strict bool) error {
	var errs []string

	if strict && cfg.DatabaseURL == "" {
		errs = append(errs, "FEEDCLOUD_DATABASE_URL is not set")
	}
	if cfg.FeedMaxFailureCount < 1 {
		errs = append(errs, "FEEDCLOUD_FEED_MAX_FAILURE_COUNT must be >= 1")
	}
	if cfg.TaskSchedulerInterval <= 0 {
		errs = append(errs, "FEEDCLOUD_TASK_SCHEDULER_INTERVAL_SECONDS must be > 0")
	}
	if cfg.BackoffMinSeconds <= 0 || cfg.BackoffMaxSeconds < cfg.BackoffMinSeconds {
		errs = append(errs, "FEEDCLOUD_BACKOFF_MIN_SECONDS/FEEDCLOUD_BACKOFF_MAX_SECONDS are inconsistent")
	}
	if cfg.WorkerConcurrency < 1 {
		errs = append(errs, "FEEDCLOUD_WORKER_CONCURRENCY must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
