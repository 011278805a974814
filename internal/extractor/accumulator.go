package extractor

import (
	"sync"

	"github.com/93bx/vidsrc-stremio-addon/internal/manifest"
)

// Accumulator collects manifests captured during one attempt. It is written
// from interception callbacks and read by the orchestrator.
type Accumulator struct {
	mu    sync.Mutex
	set   manifest.Set
	ready chan struct{}
	once  sync.Once
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		set:   make(manifest.Set),
		ready: make(chan struct{}),
	}
}

// Record stores url under label. A later capture for the same label wins.
func (a *Accumulator) Record(label, url string) {
	a.mu.Lock()
	a.set[label] = url
	a.mu.Unlock()
	a.once.Do(func() { close(a.ready) })
}

// Ready is closed after the first capture.
func (a *Accumulator) Ready() <-chan struct{} {
	return a.ready
}

// Len returns the number of distinct labels captured.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.set)
}

// Snapshot returns a copy of the captured set.
func (a *Accumulator) Snapshot() manifest.Set {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.set.Clone()
}
