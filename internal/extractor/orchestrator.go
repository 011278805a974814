// Package extractor drives browser sessions through the target's embed pages
// and collects the playlist URLs they request.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/93bx/vidsrc-stremio-addon/internal/browser"
	"github.com/93bx/vidsrc-stremio-addon/internal/classifier"
	"github.com/93bx/vidsrc-stremio-addon/internal/config"
	"github.com/93bx/vidsrc-stremio-addon/internal/manifest"
	"github.com/93bx/vidsrc-stremio-addon/internal/metrics"
)

// Request identifies one piece of content to resolve.
type Request struct {
	ContentKey string
	TargetURL  string
}

// State is a stage of a single navigation attempt.
type State string

const (
	StateStart             State = "start"
	StateMainPageLoaded    State = "main_page_loaded"
	StatePlayerFrameLoaded State = "player_frame_loaded"
	StateChallengeDetected State = "challenge_detected"
	StateChallengeSolved   State = "challenge_solved"
	StatePlaybackTriggered State = "playback_triggered"
	StateManifestsCaptured State = "manifests_captured"
	StateFailed            State = "failed"
)

// Solver obtains a challenge token for a page.
type Solver interface {
	Solve(ctx context.Context, pageURL, siteKey string) (string, error)
}

const defaultEvalTimeout = 5 * time.Second

// Orchestrator runs the page, frame, challenge, playback and capture stages
// against one session. It keeps no per-attempt state of its own.
type Orchestrator struct {
	classifier *classifier.Classifier
	solver     Solver
	target     config.TargetConfig
	extraction config.ExtractionConfig
	logger     zerolog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator. solver may be nil, in which case
// any detected challenge fails the attempt.
func NewOrchestrator(cls *classifier.Classifier, solver Solver, target config.TargetConfig, extraction config.ExtractionConfig, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		classifier: cls,
		solver:     solver,
		target:     target,
		extraction: extraction,
		logger:     logger.With().Str("component", "extractor").Logger(),
		sleep:      sleepContext,
	}
}

// attempt holds everything owned by a single Navigate call.
type attempt struct {
	o        *Orchestrator
	session  browser.Session
	strategy browser.Strategy
	req      Request
	timeouts config.StrategyTimeouts
	acc      *Accumulator
	logger   zerolog.Logger

	state    State
	frameURL string
}

// Navigate drives session through every stage and returns the captured set.
// The caller owns the session and must close it.
func (o *Orchestrator) Navigate(ctx context.Context, session browser.Session, strategy browser.Strategy, req Request) (manifest.Set, error) {
	logger := o.logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		logger = *l
	}

	a := &attempt{
		o:        o,
		session:  session,
		strategy: strategy,
		req:      req,
		timeouts: o.extraction.Timeouts(string(strategy)),
		acc:      NewAccumulator(),
		logger:   logger.With().Str("strategy", string(strategy)).Str("contentKey", req.ContentKey).Logger(),
		state:    StateStart,
	}

	if err := session.Intercept(a.handleRequest); err != nil {
		return nil, a.fail(fmt.Errorf("%w: %v", ErrNavigationFailed, err))
	}

	steps := []func(context.Context) error{
		a.loadMainPage,
		a.loadPlayerFrame,
		a.resolveChallenge,
		a.triggerPlayback,
		a.awaitManifests,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return nil, a.fail(err)
		}
	}

	set := a.acc.Snapshot()
	a.logger.Info().Int("manifests", len(set)).Msg("Manifests captured")
	return set, nil
}

func (a *attempt) handleRequest(rawURL string) browser.Verdict {
	switch a.o.classifier.Classify(rawURL) {
	case classifier.Block:
		return browser.Abort
	case classifier.Capture:
		label := a.o.classifier.Label(rawURL)
		a.acc.Record(label, rawURL)
		a.logger.Debug().Str("label", label).Str("url", rawURL).Msg("Captured manifest request")
	}
	return browser.Continue
}

func (a *attempt) transition(s State) {
	a.logger.Debug().Str("from", string(a.state)).Str("to", string(s)).Msg("State transition")
	a.state = s
}

func (a *attempt) fail(err error) error {
	a.logger.Warn().Err(err).Str("state", string(a.state)).Msg("Attempt failed")
	a.state = StateFailed
	return err
}

// navigate loads u within the strategy's navigation budget.
func (a *attempt) navigate(ctx context.Context, u string) error {
	navCtx, cancel := context.WithTimeout(ctx, a.timeouts.Navigation)
	defer cancel()

	err := a.session.Navigate(navCtx, u)
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case navCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s after %s", ErrNavigationTimeout, u, a.timeouts.Navigation)
	case err != nil:
		return fmt.Errorf("%w: %s: %v", ErrNavigationFailed, u, err)
	}
	return nil
}

func (a *attempt) loadMainPage(ctx context.Context) error {
	if err := a.navigate(ctx, a.req.TargetURL); err != nil {
		return err
	}
	a.transition(StateMainPageLoaded)
	return nil
}

func (a *attempt) loadPlayerFrame(ctx context.Context) error {
	frameCtx, cancel := context.WithTimeout(ctx, a.timeouts.Frame)
	src, err := a.session.Property(frameCtx, a.o.target.FrameSelector, "src")
	cancel()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil || src == "" {
		if err == nil {
			err = errors.New("empty src")
		}
		return fmt.Errorf("%w: %s: %v", ErrFrameNotFound, a.o.target.FrameSelector, err)
	}

	frameURL, err := resolveURL(a.req.TargetURL, src)
	if err != nil {
		return fmt.Errorf("%w: bad src %q: %v", ErrFrameNotFound, src, err)
	}
	a.frameURL = frameURL
	a.logger.Debug().Str("frameUrl", frameURL).Msg("Found player frame")

	if err := a.navigate(ctx, frameURL); err != nil {
		return err
	}
	a.transition(StatePlayerFrameLoaded)
	return nil
}

// injectTokenJS fills the response field and fires the widget callback.
const injectTokenJS = `(field, token) => {
	let injected = false;
	document.querySelectorAll(field).forEach((el) => { el.value = token; injected = true; });
	const widget = document.querySelector('[data-callback]');
	const name = widget ? widget.getAttribute('data-callback') : '';
	if (name && typeof window[name] === 'function') {
		window[name](token);
		return 'callback';
	}
	return injected ? 'field' : 'none';
}`

func (a *attempt) resolveChallenge(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, a.o.extraction.ChallengeProbe)
	siteKey, err := a.session.Attribute(probeCtx, a.o.target.ChallengeSelector, a.o.target.SiteKeyAttribute)
	cancel()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil || siteKey == "" {
		a.logger.Debug().Msg("No challenge widget present")
		return nil
	}

	a.transition(StateChallengeDetected)
	a.logger.Info().Str("siteKey", siteKey).Msg("Challenge detected")

	if a.o.solver == nil {
		metrics.SolverTasks.WithLabelValues("unconfigured").Inc()
		return fmt.Errorf("%w: no solver configured", ErrChallengeFailed)
	}

	token, err := a.o.solver.Solve(ctx, a.frameURL, siteKey)
	if err != nil {
		metrics.SolverTasks.WithLabelValues("failed").Inc()
		return fmt.Errorf("%w: %w", ErrChallengeFailed, err)
	}
	metrics.SolverTasks.WithLabelValues("solved").Inc()

	evalCtx, cancel := a.o.evalContext(ctx)
	mode, err := a.session.Eval(evalCtx, injectTokenJS, a.o.target.TokenField, token)
	cancel()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		a.logger.Warn().Err(err).Msg("Token injection failed")
	} else {
		a.logger.Debug().Str("mode", mode).Msg("Token injected")
	}

	if err := a.o.sleep(ctx, a.o.extraction.ChallengeSettle); err != nil {
		return err
	}
	a.transition(StateChallengeSolved)
	return nil
}

// triggerPlayback clicks the play control. Failure is logged only: capture
// may already be under way from earlier navigation.
func (a *attempt) triggerPlayback(ctx context.Context) error {
	playCtx, cancel := context.WithTimeout(ctx, a.timeouts.Play)
	err := a.session.Click(playCtx, a.o.target.PlaySelector)
	cancel()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		a.logger.Debug().Err(err).Msg("Play control not clicked")
	}
	a.transition(StatePlaybackTriggered)
	return nil
}

func (a *attempt) awaitManifests(ctx context.Context) error {
	timer := time.NewTimer(a.timeouts.Capture)
	select {
	case <-a.acc.Ready():
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}
	timer.Stop()

	if a.acc.Len() > 0 {
		// more variants usually follow the first playlist closely
		grace := a.o.extraction.CaptureGrace
		if grace > a.timeouts.Capture {
			grace = a.timeouts.Capture
		}
		if err := a.o.sleep(ctx, grace); err != nil {
			return err
		}
	} else if a.o.extraction.ScrapeFallback {
		a.scrape(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if a.acc.Len() == 0 {
		return fmt.Errorf("%w after %s", ErrNoManifestCaptured, a.timeouts.Capture)
	}
	a.transition(StateManifestsCaptured)
	return nil
}

// evalContext bounds a single script evaluation or document read.
func (o *Orchestrator) evalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	d := o.extraction.EvalTimeout
	if d <= 0 {
		d = defaultEvalTimeout
	}
	return context.WithTimeout(ctx, d)
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
