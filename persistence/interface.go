// persistence/interface.go
package persistence

import (
	"context"
	"errors"

	"github.com/wfunc/vocabversus/models"
)

// WordSetStore holds the vocabularies rounds are generated from. Game
// instances themselves are never persisted.
type WordSetStore interface {
	GetWordSet(ctx context.Context, id string) (*models.WordSet, error)
	SaveWordSet(ctx context.Context, ws *models.WordSet) error
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
)
