package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atmx/hedge-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Expired quotes are
// skipped on read and pruned on write.
type MemoryStore struct {
	mu        sync.RWMutex
	quotes    map[string]memoryEntry
	order     []string // oldest first
	ttl       time.Duration
	maxRecent int
	now       func() time.Time
}

type memoryEntry struct {
	quote     model.Quote
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store. A non-positive ttl keeps quotes
// forever; a non-positive maxRecent keeps every quote in the recent list.
func NewMemoryStore(ttl time.Duration, maxRecent int) *MemoryStore {
	return &MemoryStore{
		quotes:    make(map[string]memoryEntry),
		ttl:       ttl,
		maxRecent: maxRecent,
		now:       time.Now,
	}
}

func (s *MemoryStore) SaveQuote(_ context.Context, q *model.Quote) error {
	if q == nil || q.ID == "" {
		return fmt.Errorf("store: quote id required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.prune(now)

	entry := memoryEntry{quote: *q}
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}
	if _, exists := s.quotes[q.ID]; !exists {
		s.order = append(s.order, q.ID)
	}
	s.quotes[q.ID] = entry

	if s.maxRecent > 0 && len(s.order) > s.maxRecent {
		drop := len(s.order) - s.maxRecent
		for _, id := range s.order[:drop] {
			delete(s.quotes, id)
		}
		s.order = append([]string(nil), s.order[drop:]...)
	}
	return nil
}

func (s *MemoryStore) GetQuote(_ context.Context, id string) (*model.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.quotes[id]
	if !ok || s.expired(e, s.now()) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	q := e.quote
	return &q, nil
}

func (s *MemoryStore) ListQuotes(_ context.Context, limit int) ([]model.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	quotes := make([]model.Quote, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		if limit > 0 && len(quotes) >= limit {
			break
		}
		e := s.quotes[s.order[i]]
		if s.expired(e, now) {
			continue
		}
		quotes = append(quotes, e.quote)
	}
	return quotes, nil
}

func (s *MemoryStore) expired(e memoryEntry, now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// prune drops expired quotes. Caller holds the write lock.
func (s *MemoryStore) prune(now time.Time) {
	kept := s.order[:0]
	for _, id := range s.order {
		if s.expired(s.quotes[id], now) {
			delete(s.quotes, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}
