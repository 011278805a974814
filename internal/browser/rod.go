package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"

	"github.com/93bx/vidsrc-stremio-addon/internal/config"
)

// privacyHeaders are sent with every request, as name/value pairs.
var privacyHeaders = []string{
	"DNT", "1",
	"Sec-GPC", "1",
	"Accept-Language", "en-US,en;q=0.9",
}

// RodLauncher starts Chromium through go-rod, one process per session.
type RodLauncher struct {
	cfg    config.BrowserConfig
	logger zerolog.Logger

	mu  sync.RWMutex
	bin string
}

// NewRodLauncher creates a launcher. Call Provision before the first Launch.
func NewRodLauncher(cfg config.BrowserConfig, logger zerolog.Logger) *RodLauncher {
	if cfg.NetworkIdle <= 0 {
		cfg.NetworkIdle = 500 * time.Millisecond
	}
	return &RodLauncher{
		cfg:    cfg,
		logger: logger.With().Str("component", "browser").Logger(),
		bin:    cfg.Bin,
	}
}

// Provision resolves the browser binary: the configured path, then a system
// install, then a downloaded revision.
func (l *RodLauncher) Provision(ctx context.Context) error {
	if l.cfg.Bin != "" {
		if _, err := os.Stat(l.cfg.Bin); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBrowserNotFound, l.cfg.Bin, err)
		}
		l.setBin(l.cfg.Bin)
		l.logger.Info().Str("bin", l.cfg.Bin).Msg("Using configured browser")
		return nil
	}

	if path, ok := launcher.LookPath(); ok {
		l.setBin(path)
		l.logger.Info().Str("bin", path).Msg("Using system browser")
		return nil
	}

	l.logger.Info().Msg("No browser found, downloading Chromium")
	b := launcher.NewBrowser()
	b.Context = ctx
	path, err := b.Get()
	if err != nil {
		return fmt.Errorf("failed to download browser: %w", err)
	}
	l.setBin(path)
	l.logger.Info().Str("bin", path).Msg("Downloaded browser")
	return nil
}

// Bin returns the resolved browser executable.
func (l *RodLauncher) Bin() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bin
}

func (l *RodLauncher) setBin(bin string) {
	l.mu.Lock()
	l.bin = bin
	l.mu.Unlock()
}

// Launch starts an isolated browser configured for strategy.
func (l *RodLauncher) Launch(ctx context.Context, strategy Strategy) (Session, error) {
	ln := launcher.New().
		Context(ctx).
		Headless(l.cfg.Headless).
		NoSandbox(l.cfg.NoSandbox).
		Set(flags.Flag("disable-dev-shm-usage")).
		Set(flags.Flag("disable-gpu")).
		Set(flags.Flag("disable-software-rasterizer")).
		Set(flags.Flag("disable-web-security")).
		Set(flags.Flag("block-new-web-contents")).
		Set(flags.Flag("mute-audio")).
		// keep cross-origin player frames in-process so interception sees them
		Set(flags.Flag("disable-features"), "IsolateOrigins,site-per-process")
	if bin := l.Bin(); bin != "" {
		ln = ln.Bin(bin)
	}
	if strategy == Evasive {
		ln = ln.Set(flags.Flag("disable-blink-features"), "AutomationControlled").
			Set(flags.Flag("window-size"), "1920,1080")
	}

	controlURL, err := ln.Launch()
	if err != nil {
		ln.Kill()
		ln.Cleanup()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		ln.Kill()
		ln.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	s := &rodSession{browser: b, launcher: ln, idle: l.cfg.NetworkIdle, logger: l.logger}

	var page *rod.Page
	if strategy == Evasive {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	s.page = page

	if l.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: l.cfg.UserAgent}); err != nil {
			l.logger.Warn().Err(err).Msg("Failed to set user agent")
		}
	}

	if _, err := page.SetExtraHeaders(privacyHeaders); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to set extra headers")
	}

	l.logger.Debug().Str("strategy", string(strategy)).Msg("Browser session started")
	return s, nil
}

type rodSession struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	router   *rod.HijackRouter
	idle     time.Duration
	logger   zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

func (s *rodSession) Intercept(handler RequestHandler) error {
	router := s.page.HijackRequests()
	if err := router.Add("*", "", func(h *rod.Hijack) {
		if handler(h.Request.URL().String()) == Abort {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	}); err != nil {
		return fmt.Errorf("failed to install request interception: %w", err)
	}
	go router.Run()
	s.router = router
	return nil
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	wait := p.WaitRequestIdle(s.idle, nil, nil, nil)
	if err := p.Navigate(url); err != nil {
		return err
	}
	wait()
	return ctx.Err()
}

func (s *rodSession) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
		}
		return nil, err
	}
	return el, nil
}

func (s *rodSession) Property(ctx context.Context, selector, name string) (string, error) {
	el, err := s.element(ctx, selector)
	if err != nil {
		return "", err
	}
	v, err := el.Property(name)
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

func (s *rodSession) Attribute(ctx context.Context, selector, name string) (string, error) {
	el, err := s.element(ctx, selector)
	if err != nil {
		return "", err
	}
	v, err := el.Attribute(name)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func (s *rodSession) Click(ctx context.Context, selector string) error {
	el, err := s.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (s *rodSession) Eval(ctx context.Context, js string, args ...any) (string, error) {
	res, err := s.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.router != nil {
			if err := s.router.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stop router: %w", err))
			}
		}
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.closeErr = errors.Join(errs...)
		if s.closeErr != nil {
			s.logger.Debug().Err(s.closeErr).Msg("Browser session closed with errors")
		}
	})
	return s.closeErr
}
