// services/round_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/vocabversus/models"
	"github.com/wfunc/vocabversus/persistence"
)

var ErrEmptyWordSet = errors.New("word set has no usable words")

const (
	minFragment = 2
	maxFragment = 3
)

// RoundService builds round material from a game's word set. Each round asks
// players for words containing a character fragment taken from a real word in
// the set, so every round is solvable.
type RoundService struct {
	store persistence.WordSetStore
	rng   *rand.Rand
	mutex sync.Mutex
}

func NewRoundService(store persistence.WordSetStore, seed int64) *RoundService {
	return &RoundService{
		store: store,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// CreateGameRound 生成一轮游戏
func (s *RoundService) CreateGameRound(ctx context.Context, gameID, wordSetID string) (*models.GameRound, error) {
	ws, err := s.store.GetWordSet(ctx, wordSetID)
	if err != nil {
		return nil, fmt.Errorf("load word set for game %s: %w", gameID, err)
	}

	fragment, err := s.pickFragment(ws.Words)
	if err != nil {
		return nil, fmt.Errorf("word set %q: %w", wordSetID, err)
	}

	return &models.GameRound{
		ID:         uuid.New().String(),
		GameID:     gameID,
		Characters: fragment,
		CreatedAt:  time.Now(),
	}, nil
}

func (s *RoundService) pickFragment(words []string) (string, error) {
	candidates := make([][]rune, 0, len(words))
	for _, w := range words {
		if r := []rune(w); len(r) >= minFragment {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return "", ErrEmptyWordSet
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	word := candidates[s.rng.Intn(len(candidates))]
	size := minFragment + s.rng.Intn(maxFragment-minFragment+1)
	if size > len(word) {
		size = len(word)
	}
	start := s.rng.Intn(len(word) - size + 1)
	return string(word[start : start+size]), nil
}
