// Package metadata looks up title details used to describe streams.
package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/93bx/vidsrc-stremio-addon/internal/cache"
	"github.com/93bx/vidsrc-stremio-addon/internal/config"
	"github.com/93bx/vidsrc-stremio-addon/internal/metadata/omdb"
)

var (
	ErrNoProvidersConfigured = errors.New("no metadata providers configured")
	ErrNotFound              = errors.New("metadata not found")
)

const healthCategory = "metadata"

// Details is re-exported so callers need not import the provider package.
type Details = omdb.Details

// Service fetches and caches title details.
type Service struct {
	omdb          OMDBClient
	cache         *cache.Memory[*Details]
	ttl           time.Duration
	logger        zerolog.Logger
	healthService HealthService
}

// NewService creates a metadata service backed by OMDb.
func NewService(cfg *config.MetadataConfig, logger zerolog.Logger) *Service {
	return NewServiceWithClient(omdb.NewClient(cfg.OMDB, logger), cfg.CacheTTL, logger)
}

// NewServiceWithClient creates a service with a custom client.
func NewServiceWithClient(client OMDBClient, ttl time.Duration, logger zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		omdb:   client,
		cache:  cache.NewMemory[*Details](1000),
		ttl:    ttl,
		logger: logger.With().Str("component", "metadata").Logger(),
	}
}

// SetHealthService registers the provider for health tracking.
func (s *Service) SetHealthService(hs HealthService) {
	s.healthService = hs
	hs.RegisterItemStr(healthCategory, s.omdb.Name(), "OMDb")
	if !s.omdb.IsConfigured() {
		hs.SetWarningStr(healthCategory, s.omdb.Name(), "API key not configured; descriptions use IMDb ids")
	}
}

// IsConfigured reports whether any provider can be queried.
func (s *Service) IsConfigured() bool {
	return s.omdb.IsConfigured()
}

// FetchDetails returns details for an IMDb id.
func (s *Service) FetchDetails(ctx context.Context, imdbID string) (*Details, error) {
	if !s.omdb.IsConfigured() {
		return nil, ErrNoProvidersConfigured
	}
	if d, ok := s.cache.Get(imdbID); ok {
		return d, nil
	}

	d, err := s.omdb.GetByIMDbID(ctx, imdbID)
	if errors.Is(err, omdb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.reportError(err)
		return nil, err
	}
	s.reportOK()

	s.cache.Set(imdbID, d, s.ttl)
	s.logger.Debug().Str("imdbId", imdbID).Str("title", d.Title).Msg("Fetched details")
	return d, nil
}

// Test checks provider connectivity.
func (s *Service) Test(ctx context.Context) error {
	return s.omdb.Test(ctx)
}

// Sweep drops expired cached details.
func (s *Service) Sweep() int {
	return s.cache.Sweep()
}

func (s *Service) reportError(err error) {
	if s.healthService != nil {
		s.healthService.SetErrorStr(healthCategory, s.omdb.Name(), err.Error())
	}
}

func (s *Service) reportOK() {
	if s.healthService != nil {
		s.healthService.ClearStatusStr(healthCategory, s.omdb.Name())
	}
}
