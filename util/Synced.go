package util

import (
	"sync"

	"github.com/dolthub/swiss"
)

// SyncedSwissMap is a swiss map safe for concurrent use. Readers share the lock.
type SyncedSwissMap[K comparable, V any] struct {
	mu sync.RWMutex
	m  *swiss.Map[K, V]
}

func NewSyncedSwissMap[K comparable, V any](capacity uint32) *SyncedSwissMap[K, V] {
	return &SyncedSwissMap[K, V]{m: swiss.NewMap[K, V](capacity)}
}

func (s *SyncedSwissMap[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	v, ok := s.m.Get(key)
	s.mu.RUnlock()

	return v, ok
}

func (s *SyncedSwissMap[K, V]) Set(key K, value V) {
	s.mu.Lock()
	s.m.Put(key, value)
	s.mu.Unlock()
}

// SetIfAbsent stores value unless key is present and reports whether it stored it.
func (s *SyncedSwissMap[K, V]) SetIfAbsent(key K, value V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.m.Has(key) {
		return false
	}

	s.m.Put(key, value)

	return true
}

func (s *SyncedSwissMap[K, V]) Length() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.m.Count()
}

func (s *SyncedSwissMap[K, V]) Delete(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.m.Delete(key)
}
