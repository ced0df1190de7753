package throttle

import (
	"context"
	"sync"
	"time"
)

// Store persists attempt records.
type Store interface {
	Get(ctx context.Context, key Key) (Record, bool, error)
	Put(ctx context.Context, key Key, rec Record, ttl time.Duration) error
	Delete(ctx context.Context, key Key) error
}

// Sweeper is implemented by stores that need explicit eviction.
type Sweeper interface {
	// Sweep deletes every record for which expired returns true and reports how many were removed.
	Sweep(ctx context.Context, expired func(Record) bool) int
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[Key]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Key]Record)}
}

func (s *MemoryStore) Get(_ context.Context, key Key) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	return rec, ok, nil
}

// Put stores rec. The ttl is ignored; expiry is decided lazily by the throttle and by Sweep.
func (s *MemoryStore) Put(_ context.Context, key Key, rec Record, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = rec
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, key)
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context, expired func(Record) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, rec := range s.records {
		if expired(rec) {
			delete(s.records, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}
