package metadata

import (
	"context"

	"github.com/93bx/vidsrc-stremio-addon/internal/metadata/omdb"
)

// OMDBClient defines the interface for OMDb API operations.
type OMDBClient interface {
	Name() string
	IsConfigured() bool
	Test(ctx context.Context) error
	GetByIMDbID(ctx context.Context, imdbID string) (*omdb.Details, error)
}

// HealthService is the interface for central health tracking.
type HealthService interface {
	RegisterItemStr(category, id, name string)
	SetErrorStr(category, id, message string)
	SetWarningStr(category, id, message string)
	ClearStatusStr(category, id string)
}
