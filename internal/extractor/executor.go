package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/93bx/vidsrc-stremio-addon/internal/browser"
	"github.com/93bx/vidsrc-stremio-addon/internal/manifest"
	"github.com/93bx/vidsrc-stremio-addon/internal/metrics"
)

// Navigator runs one attempt against an open session.
type Navigator interface {
	Navigate(ctx context.Context, session browser.Session, strategy browser.Strategy, req Request) (manifest.Set, error)
}

// HealthReporter receives per-strategy outcomes.
type HealthReporter interface {
	RegisterItemStr(category, id, name string)
	SetWarningStr(category, id, message string)
	ClearStatusStr(category, id string)
}

const (
	healthCategory       = "browser"
	defaultLaunchTimeout = 30 * time.Second
)

// Executor tries each strategy in order, each in its own session, until one
// produces a non-empty manifest set.
type Executor struct {
	launcher   browser.Launcher
	navigator  Navigator
	strategies []browser.Strategy
	sessions   *semaphore.Weighted
	health     HealthReporter
	logger     zerolog.Logger

	launchTimeout time.Duration
}

// NewExecutor creates an executor. maxSessions bounds the number of browser
// sessions open at once across all requests.
func NewExecutor(launcher browser.Launcher, navigator Navigator, strategies []browser.Strategy, maxSessions int, logger zerolog.Logger) *Executor {
	if maxSessions <= 0 {
		maxSessions = 1
	}
	return &Executor{
		launcher:   launcher,
		navigator:  navigator,
		strategies: strategies,
		sessions:   semaphore.NewWeighted(int64(maxSessions)),
		logger:     logger.With().Str("component", "extractor").Logger(),

		launchTimeout: defaultLaunchTimeout,
	}
}

// SetLaunchTimeout bounds how long a session may take to start.
func (e *Executor) SetLaunchTimeout(d time.Duration) {
	if d > 0 {
		e.launchTimeout = d
	}
}

// SetHealthReporter registers one health item per strategy.
func (e *Executor) SetHealthReporter(h HealthReporter) {
	e.health = h
	for _, s := range e.strategies {
		h.RegisterItemStr(healthCategory, string(s), string(s)+" strategy")
	}
}

// Strategies returns the configured order.
func (e *Executor) Strategies() []browser.Strategy {
	return append([]browser.Strategy(nil), e.strategies...)
}

// Resolve runs the strategies sequentially. The first success is returned in
// full; if all fail the result is an *ExtractionFailedError.
func (e *Executor) Resolve(ctx context.Context, req Request) (manifest.Set, error) {
	failed := &ExtractionFailedError{ContentKey: req.ContentKey}

	for _, strategy := range e.strategies {
		if err := ctx.Err(); err != nil {
			failed.Attempts = append(failed.Attempts, AttemptError{Strategy: strategy, Err: err})
			break
		}

		attemptID := uuid.NewString()
		set, err := e.runStrategy(ctx, strategy, attemptID, req)
		if err == nil {
			e.reportOK(strategy)
			return set, nil
		}

		failed.Attempts = append(failed.Attempts, AttemptError{Strategy: strategy, AttemptID: attemptID, Err: err})
		e.reportError(strategy, err)
		e.logger.Warn().
			Err(err).
			Str("strategy", string(strategy)).
			Str("attemptId", attemptID).
			Str("contentKey", req.ContentKey).
			Msg("Strategy failed")
	}

	e.logger.Error().
		Err(failed).
		Str("contentKey", req.ContentKey).
		Int("attempts", len(failed.Attempts)).
		Msg("All strategies failed")
	return nil, failed
}

// runStrategy owns one session from launch to teardown, on every exit path.
func (e *Executor) runStrategy(ctx context.Context, strategy browser.Strategy, attemptID string, req Request) (set manifest.Set, err error) {
	if err := e.sessions.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sessions.Release(1)

	start := time.Now()
	outcome := "failed"
	defer func() {
		metrics.StrategyDuration.WithLabelValues(string(strategy)).Observe(time.Since(start).Seconds())
		metrics.StrategyAttempts.WithLabelValues(string(strategy), outcome).Inc()
	}()

	logger := e.logger.With().Str("attemptId", attemptID).Logger()
	ctx = logger.WithContext(ctx)

	session, err := e.launch(ctx, strategy)
	if err != nil {
		return nil, fmt.Errorf("launch %s session: %w", strategy, err)
	}
	metrics.ActiveSessions.Inc()
	defer func() {
		metrics.ActiveSessions.Dec()
		if cerr := session.Close(); cerr != nil {
			logger.Debug().Err(cerr).Msg("Session teardown reported errors")
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Recovered from panic during extraction")
			set, err = nil, fmt.Errorf("panic during %s extraction: %v", strategy, r)
		}
	}()

	set, err = e.navigator.Navigate(ctx, session, strategy, req)
	if err != nil {
		return nil, err
	}
	if set.Empty() {
		return nil, ErrNoManifestCaptured
	}

	outcome = "success"
	metrics.ManifestsCaptured.Observe(float64(len(set)))
	return set, nil
}

// launch starts a session within the launch budget. A launch that outlives
// the budget is abandoned and its session closed whenever it does arrive.
func (e *Executor) launch(ctx context.Context, strategy browser.Strategy) (browser.Session, error) {
	launchCtx, cancel := context.WithTimeout(ctx, e.launchTimeout)
	defer cancel()

	type launched struct {
		session browser.Session
		err     error
	}
	done := make(chan launched, 1)
	go func() {
		s, err := e.launcher.Launch(launchCtx, strategy)
		done <- launched{s, err}
	}()

	select {
	case r := <-done:
		return r.session, r.err
	case <-launchCtx.Done():
		go func() {
			if r := <-done; r.session != nil {
				_ = r.session.Close()
			}
		}()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w after %s", ErrLaunchTimeout, e.launchTimeout)
	}
}

func (e *Executor) reportOK(strategy browser.Strategy) {
	if e.health != nil {
		e.health.ClearStatusStr(healthCategory, string(strategy))
	}
}

func (e *Executor) reportError(strategy browser.Strategy, err error) {
	if e.health == nil || errors.Is(err, context.Canceled) {
		return
	}
	e.health.SetWarningStr(healthCategory, string(strategy), err.Error())
}
