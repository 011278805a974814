package cache

import (
	"context"
	"time"

	"github.com/93bx/vidsrc-stremio-addon/internal/manifest"
)

// Entry is one cached resolution.
type Entry struct {
	Key        string        `json:"key"`
	Value      manifest.Set  `json:"value"`
	InsertedAt time.Time     `json:"insertedAt"`
	TTL        time.Duration `json:"ttl"`
}

// Expired reports whether the entry's age exceeds its ttl at now.
func (e Entry) Expired(now time.Time) bool {
	return now.Sub(e.InsertedAt) > e.TTL
}

// Store is the storage substrate behind Cache.
type Store interface {
	Load(ctx context.Context, key string) (Entry, bool, error)
	Save(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, key string) error
	// Sweep removes expired entries where the backend does not do so itself.
	Sweep(ctx context.Context) (int, error)
	Name() string
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	items *Memory[Entry]
}

// NewMemoryStore creates a store bounded to maxItems entries.
func NewMemoryStore(maxItems int) *MemoryStore {
	return &MemoryStore{items: NewMemory[Entry](maxItems)}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Load(_ context.Context, key string) (Entry, bool, error) {
	e, ok := s.items.Get(key)
	return e, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, entry Entry) error {
	s.items.Set(entry.Key, entry, entry.TTL)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.items.Delete(key)
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	return s.items.Sweep(), nil
}
