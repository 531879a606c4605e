package storage

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     CachedDetails
	expiresAt time.Time
}

// MemoryStorage is an in-process MetadataCache
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[int]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStorage(ttl time.Duration) *MemoryStorage {
	if ttl <= 0 {
		ttl = DefaultMetadataTTL
	}
	return &MemoryStorage{
		entries: make(map[int]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStorage) Get(ctx context.Context, appID int) (CachedDetails, bool, error) {
	s.mu.RLock()
	entry, exists := s.entries[appID]
	s.mu.RUnlock()

	if !exists {
		return CachedDetails{}, false, nil
	}
	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		// re-check: another goroutine may have refreshed it
		if cur, ok := s.entries[appID]; ok && s.now().After(cur.expiresAt) {
			delete(s.entries, appID)
		}
		s.mu.Unlock()
		return CachedDetails{}, false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStorage) Put(ctx context.Context, appID int, value CachedDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[appID] = memoryEntry{
		value:     value,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStorage) Prune(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
