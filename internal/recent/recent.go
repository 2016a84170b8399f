// Package recent keeps the dashboard's recent-searches list: most-recent-first,
// deduplicated, capped, and persisted through a KV port.
package recent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/fakhrymubarak/skyglow-weather/internal/config"
)

// DefaultCapacity is the number of entries kept.
const DefaultCapacity = 5

// DefaultKey is the storage key holding the serialized list.
const DefaultKey = "recentWeatherSearches"

// ErrNotFound is returned by a KV when the key has never been written.
var ErrNotFound = errors.New("key not found")

// KV is the persistence port: one string value per key.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Store is the recent-searches list backed by a KV.
type Store struct {
	mu       sync.Mutex
	kv       KV
	key      string
	capacity int
}

// NewStore creates a store. Empty key and non-positive capacity take the defaults.
func NewStore(kv KV, key string, capacity int) *Store {
	if key == "" {
		key = DefaultKey
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{kv: kv, key: key, capacity: capacity}
}

// Load returns the persisted list. A missing, unreadable or malformed value yields an empty list.
func (s *Store) Load(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load(ctx)
	if err != nil {
		config.GetLogger().Warnw("Could not read recent searches", "key", s.key, "error", err)
		return []string{}
	}
	return list
}

// load reads the persisted list. Only a failed read is an error; a missing or
// malformed value is an empty list.
func (s *Store) load(ctx context.Context) ([]string, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []string{}, nil
		}
		return nil, err
	}

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		config.GetLogger().Warnw("Discarding malformed recent searches", "key", s.key, "error", err)
		return []string{}, nil
	}
	if list == nil {
		return []string{}, nil
	}
	if len(list) > s.capacity {
		list = list[:s.capacity]
	}
	return list, nil
}

// Record moves location to the front, drops any earlier copy, truncates to capacity
// and persists the result. The updated list is returned even when persisting fails.
func (s *Store) Record(ctx context.Context, location string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := Prepend(s.load(ctx), location, s.capacity)

	b, err := json.Marshal(updated)
	if err != nil {
		return updated, err
	}
	if err := s.kv.Set(ctx, s.key, string(b)); err != nil {
		config.GetLogger().Errorw("Could not persist recent searches", "key", s.key, "error", err)
		return updated, err
	}
	return updated, nil
}

// Prepend returns a new list with location first, without duplicates, at most capacity long.
func Prepend(list []string, location string, capacity int) []string {
	updated := make([]string, 0, len(list)+1)
	updated = append(updated, location)
	for _, item := range list {
		if item != location {
			updated = append(updated, item)
		}
	}
	if len(updated) > capacity {
		updated = updated[:capacity]
	}
	return updated
}

// MemoryKV is a process-local KV.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}
