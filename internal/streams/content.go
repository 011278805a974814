package streams

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/93bx/vidsrc-stremio-addon/internal/config"
)

// ErrInvalidContent is returned for a malformed type or id.
var ErrInvalidContent = errors.New("invalid content")

// ContentType is the Stremio content type.
type ContentType string

const (
	Movie  ContentType = "movie"
	Series ContentType = "series"
)

// Content identifies a movie or a single episode.
type Content struct {
	Type    ContentType
	ImdbID  string
	Season  int
	Episode int
}

// ParseContent parses a Stremio type and id. Movie ids use only the first
// segment; series ids must be imdbId:season:episode.
func ParseContent(contentType, id string) (Content, error) {
	parts := strings.Split(id, ":")
	imdbID := parts[0]
	if !validImdbID(imdbID) {
		return Content{}, fmt.Errorf("%w: id %q", ErrInvalidContent, id)
	}

	switch ContentType(contentType) {
	case Movie:
		return Content{Type: Movie, ImdbID: imdbID}, nil
	case Series:
		if len(parts) != 3 {
			return Content{}, fmt.Errorf("%w: series id %q must be imdbId:season:episode", ErrInvalidContent, id)
		}
		season, err := strconv.Atoi(parts[1])
		if err != nil || season <= 0 {
			return Content{}, fmt.Errorf("%w: season %q", ErrInvalidContent, parts[1])
		}
		episode, err := strconv.Atoi(parts[2])
		if err != nil || episode <= 0 {
			return Content{}, fmt.Errorf("%w: episode %q", ErrInvalidContent, parts[2])
		}
		return Content{Type: Series, ImdbID: imdbID, Season: season, Episode: episode}, nil
	default:
		return Content{}, fmt.Errorf("%w: type %q", ErrInvalidContent, contentType)
	}
}

func validImdbID(id string) bool {
	if len(id) < 3 || !strings.HasPrefix(id, "tt") {
		return false
	}
	for _, r := range id[2:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Key is the cache key for the content.
func (c Content) Key() string {
	if c.Type == Series {
		return fmt.Sprintf("series:%s:%d:%d", c.ImdbID, c.Season, c.Episode)
	}
	return "movie:" + c.ImdbID
}

// TargetURL builds the embed page URL on the target site.
func (c Content) TargetURL(target config.TargetConfig) string {
	path := target.MoviePath
	if c.Type == Series {
		path = target.SeriesPath
	}
	r := strings.NewReplacer(
		"{id}", c.ImdbID,
		"{season}", strconv.Itoa(c.Season),
		"{episode}", strconv.Itoa(c.Episode),
	)
	return strings.TrimRight(target.BaseURL, "/") + r.Replace(path)
}
