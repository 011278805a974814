// Package testutil provides shared helpers for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/93bx/vidsrc-stremio-addon/internal/config"
)

// NewTestLogger creates a test logger that outputs to t.Log.
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
}

// NewTestConfig returns the default configuration with short extraction
// timeouts and no external credentials.
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Solver.APIKey = ""
	cfg.Metadata.OMDB.APIKey = ""
	cfg.Logging.Path = ""

	fast := config.StrategyTimeouts{
		Navigation: 200 * time.Millisecond,
		Frame:      50 * time.Millisecond,
		Play:       50 * time.Millisecond,
		Capture:    100 * time.Millisecond,
	}
	cfg.Extraction.Standard = fast
	cfg.Extraction.Evasive = fast
	cfg.Extraction.ChallengeProbe = 20 * time.Millisecond
	cfg.Extraction.ChallengeSettle = 0
	cfg.Extraction.CaptureGrace = 0
	cfg.Extraction.EvalTimeout = 50 * time.Millisecond
	cfg.Extraction.LaunchTimeout = 200 * time.Millisecond
	return cfg
}
