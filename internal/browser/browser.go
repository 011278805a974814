// Package browser abstracts the automated browser sessions used for stream
// extraction. Sessions are isolated: each Launch starts a fresh browser.
package browser

import (
	"context"
	"errors"
	"fmt"
)

// Strategy selects how a session is configured.
type Strategy string

const (
	// Standard is a plain automated browser.
	Standard Strategy = "standard"
	// Evasive hardens the session against automation fingerprinting.
	Evasive Strategy = "evasive"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case Standard, Evasive:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s)
	}
}

// Verdict tells the session what to do with an intercepted request.
type Verdict int

const (
	Continue Verdict = iota
	Abort
)

// RequestHandler is invoked synchronously for each outbound request.
type RequestHandler func(rawURL string) Verdict

var (
	ErrElementNotFound = errors.New("element not found")
	ErrBrowserNotFound = errors.New("no browser executable available")
)

// Session is a single isolated browser page. Every method taking a context
// returns when the context ends.
type Session interface {
	// Intercept installs handler for every request issued by the page.
	Intercept(handler RequestHandler) error
	// Navigate loads url and waits for the network to go quiet.
	Navigate(ctx context.Context, url string) error
	// Property waits for selector and returns a DOM property as a string.
	Property(ctx context.Context, selector, name string) (string, error)
	// Attribute waits for selector and returns an attribute value.
	Attribute(ctx context.Context, selector, name string) (string, error)
	Click(ctx context.Context, selector string) error
	// Eval runs a JS function expression and returns its result as a string.
	Eval(ctx context.Context, js string, args ...any) (string, error)
	HTML(ctx context.Context) (string, error)
	// Close releases the page and its browser process. Safe to call twice.
	Close() error
}

// Launcher creates sessions.
type Launcher interface {
	Launch(ctx context.Context, strategy Strategy) (Session, error)
}
