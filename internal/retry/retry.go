// Package retry provides bounded exponential backoff for the handful of
// fallible I/O paths in this service that are worth retrying, chiefly the
// disk persistence backend's directory scans, generalized away from
// HTTP-specific retryability rules.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	DefaultMaxAttempts = 3
	BaseDelay          = 100 * time.Millisecond
	MaxDelay           = 5 * time.Second
)

// Config controls how many attempts are made and how the delay between
// them grows.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultConfig() Config {
	return Config{MaxAttempts: DefaultMaxAttempts, BaseDelay: BaseDelay, MaxDelay: MaxDelay}
}

// Operation is a unit of work that may fail transiently.
type Operation func() error

// WithBackoff runs op up to cfg.MaxAttempts times, doubling the delay
// between attempts (capped at cfg.MaxDelay), and gives up early if ctx is
// cancelled. It returns the last error seen if every attempt fails.
func WithBackoff(ctx context.Context, log hclog.Logger, cfg Config, op Operation) error {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultConfig()
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := op(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := cfg.BaseDelay * time.Duration(1<<uint(attempt))
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		if log != nil {
			log.Warn("retrying after transient failure", "attempt", attempt+1, "max_attempts", cfg.MaxAttempts, "delay", delay, "error", lastErr)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
