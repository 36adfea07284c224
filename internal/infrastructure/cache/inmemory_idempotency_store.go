package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cashledger/backend/internal/domain/shared"
)

type idempotencyEntry struct {
	result    []byte
	expiresAt time.Time
}

func (e idempotencyEntry) live(now time.Time) bool {
	return now.Before(e.expiresAt)
}

// InMemoryIdempotencyStore implements shared.IdempotencyStore in process memory.
// State is not shared between instances.
type InMemoryIdempotencyStore struct {
	mu        sync.Mutex
	marks     map[string]idempotencyEntry
	results   map[string]idempotencyEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a store and starts its cleanup loop
func NewInMemoryIdempotencyStore(cleanupInterval time.Duration) *InMemoryIdempotencyStore {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	store := &InMemoryIdempotencyStore{
		marks:    make(map[string]idempotencyEntry),
		results:  make(map[string]idempotencyEntry),
		stopChan: make(chan struct{}),
	}
	store.wg.Add(1)
	go store.cleanupLoop(cleanupInterval)
	return store
}

// MarkProcessed marks key with a TTL. It returns false while a live mark exists.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if e, ok := s.marks[key]; ok && e.live(now) {
		return false, nil
	}
	s.marks[key] = idempotencyEntry{expiresAt: now.Add(ttl)}
	return true, nil
}

// IsProcessed reports whether key carries a live mark
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.marks[key]
	return ok && e.live(time.Now()), nil
}

// SaveResult stores result for key
func (s *InMemoryIdempotencyStore) SaveResult(_ context.Context, key string, result []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[key] = idempotencyEntry{
		result:    append([]byte(nil), result...),
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// LoadResult returns the live result stored for key
func (s *InMemoryIdempotencyStore) LoadResult(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.results[key]
	if !ok || !e.live(time.Now()) {
		return nil, false, nil
	}
	return append([]byte(nil), e.result...), true, nil
}

// Release removes the mark and any result for key
func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.marks, key)
	delete(s.results, key)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, m := range []map[string]idempotencyEntry{s.marks, s.results} {
		for key, e := range m {
			if !e.live(now) {
				delete(m, key)
			}
		}
	}
}

// Size returns the number of marks and results held
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.marks) + len(s.results)
}

// Ensure InMemoryIdempotencyStore implements IdempotencyStore
var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
