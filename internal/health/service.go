package health

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Service holds in-memory health state for registered items.
type Service struct {
	mu     sync.RWMutex
	items  map[HealthCategory]map[string]*HealthItem
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a health service with every category empty.
func NewService(logger zerolog.Logger) *Service {
	s := &Service{
		items:  make(map[HealthCategory]map[string]*HealthItem, len(categories)),
		logger: logger.With().Str("component", "health").Logger(),
		now:    time.Now,
	}
	for _, cat := range categories {
		s.items[cat] = make(map[string]*HealthItem)
	}
	return s
}

// The *Str variants let reporters depend on a small interface instead of
// this package's types.

func (s *Service) RegisterItemStr(category, id, name string) {
	s.RegisterItem(HealthCategory(category), id, name)
}

func (s *Service) SetErrorStr(category, id, message string) {
	s.SetError(HealthCategory(category), id, message)
}

func (s *Service) SetWarningStr(category, id, message string) {
	s.SetWarning(HealthCategory(category), id, message)
}

func (s *Service) ClearStatusStr(category, id string) {
	s.ClearStatus(HealthCategory(category), id)
}

// RegisterItem starts tracking an item as OK. Re-registering resets it.
func (s *Service) RegisterItem(category HealthCategory, id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.items[category]
	if !ok {
		s.logger.Warn().Str("category", string(category)).Msg("Unknown health category")
		return
	}
	items[id] = &HealthItem{ID: id, Category: category, Name: name, Status: StatusOK}
	s.logger.Debug().Str("category", string(category)).Str("id", id).Msg("Registered health item")
}

func (s *Service) SetError(category HealthCategory, id, message string) {
	s.report(category, id, StatusError, message)
}

func (s *Service) SetWarning(category HealthCategory, id, message string) {
	s.report(category, id, StatusWarning, message)
}

func (s *Service) ClearStatus(category HealthCategory, id string) {
	s.report(category, id, StatusOK, "")
}

func (s *Service) report(category HealthCategory, id string, status HealthStatus, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[category][id]
	if !ok {
		s.logger.Warn().
			Str("category", string(category)).
			Str("id", id).
			Msg("Status reported for unregistered item")
		return
	}

	now := s.now()
	item.LastCheck = &now
	previous := item.Status

	if status == StatusOK {
		item.Failures = 0
		item.Since = nil
	} else {
		item.Failures++
		if previous == StatusOK {
			item.Since = &now
		}
	}
	item.Status = status
	item.Message = message

	if previous != status {
		s.logger.Info().
			Str("category", string(category)).
			Str("id", id).
			Str("from", string(previous)).
			Str("to", string(status)).
			Str("message", message).
			Msg("Health status changed")
	}
}

// GetAll returns every item grouped by category.
func (s *Service) GetAll() map[HealthCategory][]HealthItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[HealthCategory][]HealthItem, len(categories))
	for _, cat := range categories {
		out[cat] = s.snapshot(cat)
	}
	return out
}

// GetByCategory returns the items of one category ordered by id.
func (s *Service) GetByCategory(category HealthCategory) []HealthItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(category)
}

// GetItem returns a copy of one item, or nil.
func (s *Service) GetItem(category HealthCategory, id string) *HealthItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[category][id]
	if !ok {
		return nil
	}
	cp := *item
	return &cp
}

// GetSummary counts items per category and reports the worst status seen.
func (s *Service) GetSummary() *HealthSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &HealthSummary{Overall: StatusOK, Categories: make([]CategorySummary, 0, len(categories))}
	for _, cat := range categories {
		cs := CategorySummary{Category: cat}
		for _, item := range s.items[cat] {
			switch item.Status {
			case StatusWarning:
				cs.Warning++
			case StatusError:
				cs.Error++
			default:
				cs.OK++
			}
			if item.Status.severity() > summary.Overall.severity() {
				summary.Overall = item.Status
			}
		}
		summary.Categories = append(summary.Categories, cs)
	}
	return summary
}

// IsHealthy reports whether the item is registered and OK.
func (s *Service) IsHealthy(category HealthCategory, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[category][id]
	return ok && item.Status == StatusOK
}

func (s *Service) snapshot(category HealthCategory) []HealthItem {
	items := make([]HealthItem, 0, len(s.items[category]))
	for _, item := range s.items[category] {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}
