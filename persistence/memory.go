package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/wfunc/vocabversus/models"
)

// MemoryStore is a WordSetStore for development and tests.
type MemoryStore struct {
	sets  map[string]models.WordSet
	mutex sync.RWMutex
}

func NewMemoryStore(sets ...models.WordSet) *MemoryStore {
	s := &MemoryStore{sets: make(map[string]models.WordSet)}
	for _, ws := range sets {
		s.sets[ws.ID] = clone(ws)
	}
	return s
}

func (s *MemoryStore) GetWordSet(_ context.Context, id string) (*models.WordSet, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ws, exists := s.sets[id]
	if !exists {
		return nil, fmt.Errorf("word set %q: %w", id, ErrRecordNotFound)
	}
	out := clone(ws)
	return &out, nil
}

func (s *MemoryStore) SaveWordSet(_ context.Context, ws *models.WordSet) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sets[ws.ID] = clone(*ws)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func clone(ws models.WordSet) models.WordSet {
	ws.Words = append([]string(nil), ws.Words...)
	return ws
}
