// Package memory is an in-process DocumentStore for tests and single-run
// commands.
package memory

import (
	"context"
	"sync"
)

type Store struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func New() *Store {
	return &Store{docs: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, path string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[path]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), doc...), true, nil
}

func (s *Store) Put(_ context.Context, path string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = append([]byte(nil), doc...)
	return nil
}

func (s *Store) Close() error { return nil }
