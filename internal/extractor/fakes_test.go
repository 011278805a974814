package extractor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/93bx/vidsrc-stremio-addon/internal/browser"
	"github.com/93bx/vidsrc-stremio-addon/internal/classifier"
	"github.com/93bx/vidsrc-stremio-addon/internal/config"
)

// fakeSite simulates the target: which frame it exposes, which requests the
// player issues and whether a challenge widget is shown.
type fakeSite struct {
	frameSrc      string   // empty means no frame
	siteKey       string   // empty means no challenge
	frameRequests []string // issued while the frame loads
	playRequests  []string // issued when the play control is clicked
	hangNavigate  bool
	hangEval      bool // HTML and Eval block until their context ends
	noPlay        bool // the play control never appears
	html          string
	resources     []string
}

type fakeSession struct {
	site *fakeSite

	mu       sync.Mutex
	handler  browser.RequestHandler
	events   []string
	verdicts map[string]browser.Verdict
	closed   int
}

func newFakeSession(site *fakeSite) *fakeSession {
	return &fakeSession{site: site, verdicts: make(map[string]browser.Verdict)}
}

func (s *fakeSession) record(ev string) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *fakeSession) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *fakeSession) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSession) issue(urls []string) {
	for _, u := range urls {
		v := s.handler(u)
		s.mu.Lock()
		s.verdicts[u] = v
		s.mu.Unlock()
	}
}

func (s *fakeSession) Intercept(h browser.RequestHandler) error {
	s.handler = h
	return nil
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.record("navigate:" + url)
	if s.site.hangNavigate {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.site.frameSrc != "" && strings.HasSuffix(url, strings.TrimPrefix(s.site.frameSrc, "//")) {
		s.issue(s.site.frameRequests)
	}
	return nil
}

func (s *fakeSession) Property(ctx context.Context, selector, name string) (string, error) {
	if selector == "#player_iframe" && name == "src" && s.site.frameSrc != "" {
		return s.site.frameSrc, nil
	}
	<-ctx.Done()
	return "", fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
}

func (s *fakeSession) Attribute(ctx context.Context, selector, name string) (string, error) {
	if name == "data-sitekey" && s.site.siteKey != "" {
		return s.site.siteKey, nil
	}
	return "", fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
}

func (s *fakeSession) Click(ctx context.Context, selector string) error {
	s.record("click:" + selector)
	if s.site.noPlay {
		<-ctx.Done()
		return fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	s.issue(s.site.playRequests)
	return nil
}

func (s *fakeSession) Eval(ctx context.Context, js string, args ...any) (string, error) {
	if s.site.hangEval {
		s.record("eval:hung")
		<-ctx.Done()
		return "", ctx.Err()
	}
	if js == resourceEntriesJS {
		s.record("eval:resources")
		return toJSONList(s.site.resources), nil
	}
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	s.record("eval:" + strings.Join(parts, ","))
	return "callback", nil
}

func (s *fakeSession) HTML(ctx context.Context) (string, error) {
	if s.site.hangEval {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.site.html, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

func toJSONList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, it := range items {
		quoted = append(quoted, fmt.Sprintf("%q", it))
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

type fakeSolver struct {
	mu      sync.Mutex
	token   string
	err     error
	pageURL string
	siteKey string
	calls   int
}

func (f *fakeSolver) Solve(ctx context.Context, pageURL, siteKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.pageURL = pageURL
	f.siteKey = siteKey
	return f.token, f.err
}

func testTarget() config.TargetConfig {
	return config.Default().Target
}

func testExtraction() config.ExtractionConfig {
	fast := config.StrategyTimeouts{
		Navigation: 200 * time.Millisecond,
		Frame:      50 * time.Millisecond,
		Play:       50 * time.Millisecond,
		Capture:    100 * time.Millisecond,
	}
	return config.ExtractionConfig{
		Strategies:     []string{"standard", "evasive"},
		Standard:       fast,
		Evasive:        fast,
		ChallengeProbe: 20 * time.Millisecond,
		EvalTimeout:    50 * time.Millisecond,
		LaunchTimeout:  100 * time.Millisecond,
	}
}

func testClassifier() *classifier.Classifier {
	t := testTarget()
	return classifier.New(classifier.Config{Denylist: t.Denylist, Marker: t.ManifestMarker})
}
