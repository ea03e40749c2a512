package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/pricesync/internal/domain/shared"
)

// InMemoryLeaseStore implements LeaseStore with a process-local map.
// Leases are only exclusive within one process.
type InMemoryLeaseStore struct {
	mu        sync.Mutex
	leases    map[string]time.Time
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryLeaseStore creates a store and starts its expiry sweeper
func NewInMemoryLeaseStore() *InMemoryLeaseStore {
	s := &InMemoryLeaseStore{
		leases:   make(map[string]time.Time),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop(time.Minute)

	return s
}

// Acquire claims key for ttl unless an unexpired claim exists
func (s *InMemoryLeaseStore) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiresAt, held := s.leases[key]; held && now.Before(expiresAt) {
		return false, nil
	}
	s.leases[key] = now.Add(ttl)
	return true, nil
}

// Release drops the claim on key
func (s *InMemoryLeaseStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leases, key)
	return nil
}

// Close stops the sweeper. Safe to call multiple times.
func (s *InMemoryLeaseStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryLeaseStore) cleanupLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
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

func (s *InMemoryLeaseStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, expiresAt := range s.leases {
		if !now.Before(expiresAt) {
			delete(s.leases, key)
		}
	}
}

// Size returns the number of tracked leases, expired ones included until swept
func (s *InMemoryLeaseStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leases)
}

var _ shared.LeaseStore = (*InMemoryLeaseStore)(nil)
