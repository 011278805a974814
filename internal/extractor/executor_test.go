package extractor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/93bx/vidsrc-stremio-addon/internal/browser"
	"github.com/93bx/vidsrc-stremio-addon/internal/manifest"
)

type fakeLauncher struct {
	mu        sync.Mutex
	sessions  map[browser.Strategy]*fakeSession
	launchErr map[browser.Strategy]error
	order     []browser.Strategy
	site      *fakeSite
	block     chan struct{} // when set, Launch ignores its context and waits here
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{
		sessions:  make(map[browser.Strategy]*fakeSession),
		launchErr: make(map[browser.Strategy]error),
	}
}

func (l *fakeLauncher) Launch(ctx context.Context, strategy browser.Strategy) (browser.Session, error) {
	if l.block != nil {
		<-l.block
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, strategy)
	if err := l.launchErr[strategy]; err != nil {
		return nil, err
	}
	site := l.site
	if site == nil {
		site = &fakeSite{}
	}
	s := newFakeSession(site)
	l.sessions[strategy] = s
	return s, nil
}

func (l *fakeLauncher) session(strategy browser.Strategy) *fakeSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessions[strategy]
}

// scriptedNavigator returns a fixed outcome per strategy.
type scriptedNavigator struct {
	results map[browser.Strategy]manifest.Set
	errs    map[browser.Strategy]error
	panics  map[browser.Strategy]bool
	calls   int
}

func (n *scriptedNavigator) Navigate(ctx context.Context, session browser.Session, strategy browser.Strategy, req Request) (manifest.Set, error) {
	n.calls++
	if n.panics[strategy] {
		panic("page crashed")
	}
	return n.results[strategy], n.errs[strategy]
}

type recordingHealth struct {
	mu     sync.Mutex
	errors map[string]string
	items  map[string]bool
}

func (h *recordingHealth) RegisterItemStr(category, id, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.items == nil {
		h.items = make(map[string]bool)
		h.errors = make(map[string]string)
	}
	h.items[category+"/"+id] = true
}

func (h *recordingHealth) SetWarningStr(category, id, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors[category+"/"+id] = message
}

func (h *recordingHealth) ClearStatusStr(category, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.errors, category+"/"+id)
}

var bothStrategies = []browser.Strategy{browser.Standard, browser.Evasive}

func TestResolve_FallsBackToEvasive(t *testing.T) {
	launcher := newFakeLauncher()
	evasive := manifest.Set{"master": masterURL}
	nav := &scriptedNavigator{
		results: map[browser.Strategy]manifest.Set{browser.Evasive: evasive},
		errs:    map[browser.Strategy]error{browser.Standard: ErrFrameNotFound},
	}
	health := &recordingHealth{}
	e := NewExecutor(launcher, nav, bothStrategies, 2, zerolog.Nop())
	e.SetHealthReporter(health)

	set, err := e.Resolve(context.Background(), Request{ContentKey: contentKey, TargetURL: targetURL})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if set["master"] != masterURL || len(set) != 1 {
		t.Errorf("set = %v, want evasive result", set)
	}
	for _, s := range bothStrategies {
		if got := launcher.sessions[s].Closed(); got != 1 {
			t.Errorf("%s session closed %d times, want 1", s, got)
		}
	}
	if _, ok := health.errors["browser/standard"]; !ok {
		t.Error("standard failure should be reported to health")
	}
	if _, ok := health.errors["browser/evasive"]; ok {
		t.Error("evasive success should clear health")
	}
}

func TestResolve_FirstSuccessSkipsSecondStrategy(t *testing.T) {
	launcher := newFakeLauncher()
	nav := &scriptedNavigator{
		results: map[browser.Strategy]manifest.Set{browser.Standard: {"master": masterURL}},
	}
	e := NewExecutor(launcher, nav, bothStrategies, 1, zerolog.Nop())

	if _, err := e.Resolve(context.Background(), Request{ContentKey: contentKey}); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(launcher.order) != 1 || launcher.order[0] != browser.Standard {
		t.Errorf("launch order = %v, want [standard]", launcher.order)
	}
}

func TestResolve_AllStrategiesFail(t *testing.T) {
	launcher := newFakeLauncher()
	nav := &scriptedNavigator{
		errs: map[browser.Strategy]error{
			browser.Standard: ErrNavigationTimeout,
			browser.Evasive:  ErrNoManifestCaptured,
		},
	}
	e := NewExecutor(launcher, nav, bothStrategies, 2, zerolog.Nop())

	_, err := e.Resolve(context.Background(), Request{ContentKey: contentKey})
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("Resolve() error = %v, want ErrExtractionFailed", err)
	}
	var failed *ExtractionFailedError
	if !errors.As(err, &failed) || len(failed.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %v", err)
	}
	if failed.Attempts[0].Strategy != browser.Standard || failed.Attempts[1].Strategy != browser.Evasive {
		t.Errorf("attempt order = %v", failed.Attempts)
	}
	if !errors.Is(err, ErrNavigationTimeout) || !errors.Is(err, ErrNoManifestCaptured) {
		t.Error("aggregate should expose both causes")
	}
	for _, s := range bothStrategies {
		if launcher.sessions[s].Closed() != 1 {
			t.Errorf("%s session not torn down", s)
		}
	}
}

func TestResolve_EmptySetIsFailure(t *testing.T) {
	launcher := newFakeLauncher()
	nav := &scriptedNavigator{
		results: map[browser.Strategy]manifest.Set{
			browser.Standard: {},
			browser.Evasive:  {"master": masterURL},
		},
	}
	e := NewExecutor(launcher, nav, bothStrategies, 2, zerolog.Nop())

	set, err := e.Resolve(context.Background(), Request{ContentKey: contentKey})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if set.Empty() {
		t.Error("empty standard result must fall through to evasive")
	}
	if nav.calls != 2 {
		t.Errorf("navigator calls = %d, want 2", nav.calls)
	}
}

func TestResolve_PanicIsRecoveredAndSessionClosed(t *testing.T) {
	launcher := newFakeLauncher()
	nav := &scriptedNavigator{
		panics:  map[browser.Strategy]bool{browser.Standard: true},
		results: map[browser.Strategy]manifest.Set{browser.Evasive: {"master": masterURL}},
	}
	e := NewExecutor(launcher, nav, bothStrategies, 2, zerolog.Nop())

	if _, err := e.Resolve(context.Background(), Request{ContentKey: contentKey}); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if launcher.sessions[browser.Standard].Closed() != 1 {
		t.Error("panicking strategy must still close its session")
	}
}

func TestResolve_LaunchFailureFallsThrough(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.launchErr[browser.Standard] = errors.New("chrome not found")
	nav := &scriptedNavigator{
		results: map[browser.Strategy]manifest.Set{browser.Evasive: {"master": masterURL}},
	}
	e := NewExecutor(launcher, nav, bothStrategies, 2, zerolog.Nop())

	if _, err := e.Resolve(context.Background(), Request{ContentKey: contentKey}); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
}

func TestResolve_CancelledContextStopsEarly(t *testing.T) {
	launcher := newFakeLauncher()
	nav := &scriptedNavigator{}
	e := NewExecutor(launcher, nav, bothStrategies, 2, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Resolve(ctx, Request{ContentKey: contentKey})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Resolve() error = %v, want context.Canceled", err)
	}
	if len(launcher.order) != 0 {
		t.Errorf("no session should be launched, got %v", launcher.order)
	}
}

func TestResolve_LaunchTimeoutIsBounded(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.block = make(chan struct{})
	e := NewExecutor(launcher, &scriptedNavigator{}, []browser.Strategy{browser.Standard}, 1, zerolog.Nop())
	e.SetLaunchTimeout(50 * time.Millisecond)

	start := time.Now()
	_, err := e.Resolve(context.WithoutCancel(context.Background()), Request{ContentKey: contentKey})
	if !errors.Is(err, ErrLaunchTimeout) {
		t.Fatalf("Resolve() error = %v, want ErrLaunchTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Resolve() took %v with a 50ms launch budget", elapsed)
	}

	// the abandoned launch finishes later and its session must not leak
	close(launcher.block)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if s := launcher.session(browser.Standard); s != nil && s.Closed() == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("late session was never closed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestResolve_BothStrategiesFindNothing(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.site = &fakeSite{frameSrc: frameSrc, frameRequests: []string{trackerURL}}
	o := NewOrchestrator(testClassifier(), nil, testTarget(), testExtraction(), zerolog.Nop())
	e := NewExecutor(launcher, o, bothStrategies, 2, zerolog.Nop())

	_, err := e.Resolve(context.Background(), Request{ContentKey: contentKey, TargetURL: targetURL})
	if !errors.Is(err, ErrExtractionFailed) || !errors.Is(err, ErrNoManifestCaptured) {
		t.Fatalf("Resolve() error = %v, want ErrExtractionFailed wrapping ErrNoManifestCaptured", err)
	}
	for _, s := range bothStrategies {
		if launcher.session(s).Closed() != 1 {
			t.Errorf("%s session not torn down", s)
		}
	}
}

func TestAccumulator(t *testing.T) {
	acc := NewAccumulator()
	select {
	case <-acc.Ready():
		t.Fatal("ready before any capture")
	default:
	}

	acc.Record("master", "a")
	acc.Record("master", "b")
	<-acc.Ready()

	snap := acc.Snapshot()
	if snap["master"] != "b" || acc.Len() != 1 {
		t.Errorf("snapshot = %v", snap)
	}
	snap["other"] = "c"
	if acc.Len() != 1 {
		t.Error("snapshot must not alias accumulator state")
	}
}
