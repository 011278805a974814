// Package streams implements the Stremio addon surface: the addon manifest
// and the stream listing for a movie or episode.
package streams

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/93bx/vidsrc-stremio-addon/internal/config"
	"github.com/93bx/vidsrc-stremio-addon/internal/extractor"
	"github.com/93bx/vidsrc-stremio-addon/internal/manifest"
	"github.com/93bx/vidsrc-stremio-addon/internal/metadata"
)

// Resolver returns the manifest set for a request.
type Resolver interface {
	Resolve(ctx context.Context, req extractor.Request) (manifest.Set, error)
}

// MetadataProvider looks up title information by IMDb id.
type MetadataProvider interface {
	FetchDetails(ctx context.Context, imdbID string) (*metadata.Details, error)
}

// Stream is one playable entry in a stream response.
type Stream struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// StreamsResponse is the body of the stream route.
type StreamsResponse struct {
	Streams []Stream `json:"streams"`
}

// Manifest is the addon manifest.
type Manifest struct {
	ID          string        `json:"id"`
	Version     string        `json:"version"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Resources   []string      `json:"resources"`
	Types       []ContentType `json:"types"`
	Catalogs    []any         `json:"catalogs"`
	Logo        string        `json:"logo,omitempty"`
	IDPrefixes  []string      `json:"idPrefixes"`
}

// Service builds stream listings.
type Service struct {
	resolver Resolver
	metadata MetadataProvider
	addon    config.AddonConfig
	target   config.TargetConfig
	logger   zerolog.Logger
}

// NewService creates a stream service. meta may be nil.
func NewService(resolver Resolver, meta MetadataProvider, addon config.AddonConfig, target config.TargetConfig, logger zerolog.Logger) *Service {
	return &Service{
		resolver: resolver,
		metadata: meta,
		addon:    addon,
		target:   target,
		logger:   logger.With().Str("component", "streams").Logger(),
	}
}

// Manifest returns the addon manifest.
func (s *Service) Manifest() Manifest {
	return Manifest{
		ID:          s.addon.ID,
		Version:     config.Version,
		Name:        s.addon.Name,
		Description: s.addon.Description,
		Resources:   []string{"stream"},
		Types:       []ContentType{Movie, Series},
		Catalogs:    []any{},
		Logo:        s.addon.Logo,
		IDPrefixes:  []string{"tt"},
	}
}

// Streams lists the streams for content. Only malformed input is an error;
// resolution and metadata failures yield an empty or undecorated listing.
func (s *Service) Streams(ctx context.Context, contentType, id string) ([]Stream, error) {
	content, err := ParseContent(contentType, id)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With().Str("contentKey", content.Key()).Logger()

	var (
		details *metadata.Details
		set     manifest.Set
	)
	g, gctx := errgroup.WithContext(ctx)
	if s.metadata != nil {
		g.Go(func() error {
			d, err := s.metadata.FetchDetails(gctx, content.ImdbID)
			if err != nil {
				logger.Debug().Err(err).Msg("Metadata unavailable")
				return nil
			}
			details = d
			return nil
		})
	}
	g.Go(func() error {
		req := extractor.Request{ContentKey: content.Key(), TargetURL: content.TargetURL(s.target)}
		resolved, err := s.resolver.Resolve(gctx, req)
		if err != nil {
			logger.Warn().Err(err).Msg("Stream resolution failed")
			return nil
		}
		set = resolved
		return nil
	})
	_ = g.Wait()

	streams := make([]Stream, 0, len(set))
	desc := describe(content, details)
	// labels come back sorted so output order is stable
	for _, label := range set.Labels() {
		streams = append(streams, Stream{URL: set[label], Name: label, Description: desc})
	}

	logger.Info().Int("streams", len(streams)).Msg("Streams listed")
	return streams, nil
}

// describe formats the description shared by every stream of content.
func describe(c Content, d *metadata.Details) string {
	title, year := c.ImdbID, ""
	if d != nil && d.Title != "" {
		title, year = d.Title, d.Year
	}
	if c.Type == Series {
		return fmt.Sprintf("%s Season %d, Episode %d", title, c.Season, c.Episode)
	}
	if year == "" {
		return title + " Stream"
	}
	return fmt.Sprintf("%s %s Stream", title, year)
}
