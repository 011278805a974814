package health

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Checker probes one health item. A nil error clears the item.
type Checker func(ctx context.Context) error

// Handlers provides HTTP handlers for health endpoints.
type Handlers struct {
	health   *Service
	checkers map[HealthCategory]map[string]Checker
}

// NewHandlers creates health handlers.
func NewHandlers(health *Service) *Handlers {
	return &Handlers{
		health:   health,
		checkers: make(map[HealthCategory]map[string]Checker),
	}
}

// RegisterChecker attaches an on-demand probe to a registered item.
func (h *Handlers) RegisterChecker(category HealthCategory, id string, check Checker) {
	if h.checkers[category] == nil {
		h.checkers[category] = make(map[string]Checker)
	}
	h.checkers[category][id] = check
}

// RegisterRoutes registers health routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetAll)
	g.GET("/summary", h.GetSummary)
	g.GET("/:category", h.GetByCategory)
	g.POST("/:category/:id/test", h.TestItem)
}

// GetAll returns all health items grouped by category.
// GET /api/v1/health
func (h *Handlers) GetAll(c echo.Context) error {
	return c.JSON(http.StatusOK, h.health.GetAll())
}

// GetSummary returns summary counts.
// GET /api/v1/health/summary
func (h *Handlers) GetSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, h.health.GetSummary())
}

// GetByCategory returns health items for a specific category.
// GET /api/v1/health/:category
func (h *Handlers) GetByCategory(c echo.Context) error {
	category, ok := ParseCategory(c.Param("category"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid health category")
	}
	return c.JSON(http.StatusOK, h.health.GetByCategory(category))
}

// TestItem runs the checker for one item and records the outcome.
// POST /api/v1/health/:category/:id/test
func (h *Handlers) TestItem(c echo.Context) error {
	category, ok := ParseCategory(c.Param("category"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid health category")
	}
	id := c.Param("id")
	if h.health.GetItem(category, id) == nil {
		return echo.NewHTTPError(http.StatusNotFound, "health item not found")
	}

	check := h.checkers[category][id]
	if check == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"id":      id,
			"success": false,
			"message": "testing not supported for this item",
		})
	}

	if err := check(c.Request().Context()); err != nil {
		h.health.SetError(category, id, err.Error())
		return c.JSON(http.StatusOK, map[string]interface{}{
			"id":      id,
			"success": false,
			"message": err.Error(),
		})
	}

	h.health.ClearStatus(category, id)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":      id,
		"success": true,
		"message": "Check passed",
	})
}
