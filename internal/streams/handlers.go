package streams

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// Handlers serves the addon routes.
type Handlers struct {
	service *Service
}

// NewHandlers creates addon handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the addon routes at the root of e.
func (h *Handlers) RegisterRoutes(e *echo.Echo) {
	e.GET("/manifest.json", h.GetManifest)
	e.GET("/stream/:type/:id", h.GetStreams)
}

// GetManifest returns the addon manifest.
// GET /manifest.json
func (h *Handlers) GetManifest(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Manifest())
}

// GetStreams lists streams for a movie or episode.
// GET /stream/:type/:id.json
func (h *Handlers) GetStreams(c echo.Context) error {
	id, err := url.PathUnescape(strings.TrimSuffix(c.Param("id"), ".json"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id encoding"})
	}

	streams, err := h.service.Streams(c.Request().Context(), c.Param("type"), id)
	if errors.Is(err, ErrInvalidContent) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err != nil {
		streams = nil
	}
	if streams == nil {
		streams = []Stream{}
	}
	return c.JSON(http.StatusOK, StreamsResponse{Streams: streams})
}
