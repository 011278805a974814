// Package omdb looks up title information on the OMDb API.
package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/93bx/vidsrc-stremio-addon/internal/config"
)

var (
	ErrAPIKeyMissing = errors.New("OMDb API key is not configured")
	ErrNotFound      = errors.New("not found on OMDb")
	ErrRateLimited   = errors.New("OMDb request limit reached")
)

// APIError is a failure reported by the service, either as an HTTP status
// or as a Response=False body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("omdb: status %d", e.Status)
	}
	return fmt.Sprintf("omdb: %s", e.Message)
}

// Client is an OMDb API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     zerolog.Logger
}

// NewClient creates an OMDb client.
func NewClient(cfg config.OMDBConfig, logger zerolog.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		logger:     logger.With().Str("component", "omdb").Logger(),
	}
}

func (c *Client) Name() string { return "omdb" }

func (c *Client) IsConfigured() bool { return c.apiKey != "" }

// Test looks up a well-known title.
func (c *Client) Test(ctx context.Context) error {
	_, err := c.GetByIMDbID(ctx, "tt0133093")
	return err
}

// GetByIMDbID fetches title details by IMDb id.
func (c *Client) GetByIMDbID(ctx context.Context, imdbID string) (*Details, error) {
	if imdbID == "" {
		return nil, ErrNotFound
	}
	var resp Response
	if err := c.get(ctx, url.Values{"i": {imdbID}}, &resp); err != nil {
		return nil, err
	}
	return normalize(resp), nil
}

func (c *Client) get(ctx context.Context, params url.Values, out *Response) error {
	if !c.IsConfigured() {
		return ErrAPIKeyMissing
	}
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("omdb request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if out.Response == "False" {
		switch out.Error {
		case "Movie not found!", "Series not found!", "Incorrect IMDb ID.":
			return ErrNotFound
		case "Request limit reached!":
			return ErrRateLimited
		}
		c.logger.Warn().Str("error", out.Error).Str("imdbId", params.Get("i")).Msg("OMDb returned an error")
		return &APIError{Status: resp.StatusCode, Message: out.Error}
	}
	return nil
}

func normalize(r Response) *Details {
	return &Details{
		ImdbID:  r.ImdbID,
		Title:   r.Title,
		Year:    startYear(clean(r.Year)),
		Type:    r.Type,
		Runtime: clean(r.Runtime),
		Genre:   clean(r.Genre),
		Plot:    clean(r.Plot),
		Poster:  clean(r.Poster),
	}
}

// startYear trims series ranges such as "2011–2019" or "2020–" to the first year.
func startYear(y string) string {
	if i := strings.IndexFunc(y, func(r rune) bool { return r < '0' || r > '9' }); i > 0 {
		return y[:i]
	}
	return y
}

// clean maps OMDb's "N/A" placeholder to empty.
func clean(s string) string {
	if s == "N/A" {
		return ""
	}
	return s
}
