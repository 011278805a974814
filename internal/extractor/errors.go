package extractor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/93bx/vidsrc-stremio-addon/internal/browser"
)

var (
	ErrNavigationTimeout  = errors.New("navigation timed out")
	ErrNavigationFailed   = errors.New("navigation failed")
	ErrFrameNotFound      = errors.New("player frame not found")
	ErrChallengeFailed    = errors.New("challenge resolution failed")
	ErrNoManifestCaptured = errors.New("no manifest captured")
	ErrLaunchTimeout      = errors.New("browser launch timed out")
	// ErrExtractionFailed matches ExtractionFailedError via errors.Is.
	ErrExtractionFailed = errors.New("extraction failed")
)

// AttemptError records why one strategy failed.
type AttemptError struct {
	Strategy  browser.Strategy
	AttemptID string
	Err       error
}

func (e AttemptError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e AttemptError) Unwrap() error {
	return e.Err
}

// ExtractionFailedError is returned when every strategy failed.
type ExtractionFailedError struct {
	ContentKey string
	Attempts   []AttemptError
}

func (e *ExtractionFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("extraction failed for %s", e.ContentKey)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return fmt.Sprintf("extraction failed for %s: %s", e.ContentKey, strings.Join(parts, "; "))
}

// Unwrap exposes every attempt's cause to errors.Is and errors.As.
func (e *ExtractionFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

func (e *ExtractionFailedError) Is(target error) bool {
	return target == ErrExtractionFailed
}
