// Package health tracks the state of the addon's external dependencies:
// browser strategies, the challenge solver, the cache backend and metadata.
package health

import "time"

// HealthStatus is the state of an item. Higher severity sorts later.
type HealthStatus string

const (
	StatusOK      HealthStatus = "ok"
	StatusWarning HealthStatus = "warning"
	StatusError   HealthStatus = "error"
)

func (s HealthStatus) severity() int {
	switch s {
	case StatusWarning:
		return 1
	case StatusError:
		return 2
	default:
		return 0
	}
}

// HealthCategory groups related items.
type HealthCategory string

const (
	CategoryBrowser  HealthCategory = "browser"
	CategorySolver   HealthCategory = "solver"
	CategoryCache    HealthCategory = "cache"
	CategoryMetadata HealthCategory = "metadata"
)

var categories = []HealthCategory{CategoryBrowser, CategorySolver, CategoryCache, CategoryMetadata}

// AllCategories returns the categories in display order.
func AllCategories() []HealthCategory {
	return append([]HealthCategory(nil), categories...)
}

// ParseCategory returns the category named s, if any.
func ParseCategory(s string) (HealthCategory, bool) {
	for _, cat := range categories {
		if string(cat) == s {
			return cat, true
		}
	}
	return "", false
}

// HealthItem is one tracked dependency. Failures counts consecutive non-OK
// reports and Since is when the current non-OK streak began.
type HealthItem struct {
	ID        string         `json:"id"`
	Category  HealthCategory `json:"category"`
	Name      string         `json:"name"`
	Status    HealthStatus   `json:"status"`
	Message   string         `json:"message,omitempty"`
	Failures  int            `json:"failures,omitempty"`
	Since     *time.Time     `json:"since,omitempty"`
	LastCheck *time.Time     `json:"lastCheck,omitempty"`
}

// CategorySummary counts items per status within a category.
type CategorySummary struct {
	Category HealthCategory `json:"category"`
	OK       int            `json:"ok"`
	Warning  int            `json:"warning"`
	Error    int            `json:"error"`
}

// HealthSummary is the overview served at /summary.
type HealthSummary struct {
	Overall    HealthStatus      `json:"overall"`
	Categories []CategorySummary `json:"categories"`
}
