// Package startup holds helpers for bootstrapping network-dependent
// components.
package startup

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig configures exponential backoff.
type RetryConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	Multiplier   float64
}

// DefaultRetryConfig suits browser downloads and cache connections at boot.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		MaxAttempts:  5,
		Multiplier:   2.0,
	}
}

var networkIndicators = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"no route to host",
	"host is down",
	"i/o timeout",
	"tls handshake timeout",
	"temporary failure in name resolution",
	"unexpected eof",
}

// IsNetworkError reports whether err looks like a transient network failure.
func IsNetworkError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, indicator := range networkIndicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}

// WithRetry runs fn until it succeeds, fails with a non-network error, or
// the attempts are used up. It returns the last error.
func WithRetry(ctx context.Context, name string, cfg RetryConfig, logger zerolog.Logger, fn func(context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	logger = logger.With().Str("operation", name).Logger()
	delay := cfg.InitialDelay

	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			if attempt > 1 {
				logger.Info().Int("attempt", attempt).Msg("Operation succeeded after retry")
			}
			return nil
		}
		if !IsNetworkError(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("maxAttempts", cfg.MaxAttempts).
			Dur("nextRetryIn", delay).
			Msg("Network error, will retry")

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay = nextDelay(delay, cfg)
	}

	logger.Error().Err(err).Int("attempts", cfg.MaxAttempts).Msg("Operation failed after all retries")
	return err
}

func nextDelay(d time.Duration, cfg RetryConfig) time.Duration {
	next := time.Duration(float64(d) * cfg.Multiplier)
	if cfg.MaxDelay > 0 && next > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return next
}
