// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package otp

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. Entries do not survive a restart and
// are not shared between instances.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	length  int
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore issuing codes of the given
// length.
func NewMemoryStore(length int) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		length:  length,
		now:     time.Now,
	}
}

// SetClock replaces the time source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Issue stores a fresh code for key, replacing any pending one.
func (s *MemoryStore) Issue(_ context.Context, key string, purpose Purpose, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := newEntry(s.length, purpose, ttl, s.now())
	if err != nil {
		return "", err
	}
	s.entries[key] = e
	return e.Code, nil
}

// Verify consumes the pending code for key. A missing key leaves the store
// untouched; any other outcome removes the entry.
func (s *MemoryStore) Verify(_ context.Context, key, code string, purpose Purpose) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	delete(s.entries, key)
	return e.check(code, purpose, s.now()), nil
}

// Len returns the number of pending entries, including expired ones not yet
// accessed.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
