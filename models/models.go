// models/models.go
package models

import (
	"time"

	"github.com/wfunc/vocabversus/state"
)

// PlayerRecord is one roster entry. It is owned by the room's roster and
// handed out only as a copy.
type PlayerRecord struct {
	Name        string `json:"name"`
	IsConnected bool   `json:"isConnected"`
	IsReady     bool   `json:"isReady"`
}

// WordSet is the vocabulary a game draws its rounds from.
type WordSet struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Words []string `json:"words"`
}

// GameRound is the material for one round of play.
type GameRound struct {
	ID         string    `json:"id"`
	GameID     string    `json:"gameId"`
	Index      int       `json:"index"`
	Characters string    `json:"characters"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CheckGameResponse answers CheckGame.
type CheckGameResponse struct {
	GameId         string          `json:"gameId"`
	GameState      state.GameState `json:"gameState"`
	PlayerCount    int             `json:"playerCount"`
	MaxPlayerCount int             `json:"maxPlayerCount"`
}

// JoinGameResponse answers Join. Players and Rounds let a late joiner rebuild
// the game view.
type JoinGameResponse struct {
	PersonalIdentifier string                  `json:"personalIdentifier"`
	Players            map[string]PlayerRecord `json:"players"`
	Rounds             []GameRound             `json:"rounds"`
}

// CreateGameRequest is the admin request to open a new game instance.
type CreateGameRequest struct {
	GameID     string `json:"gameId,omitempty"`
	MaxPlayers int    `json:"maxPlayers,omitempty"`
	WordSet    string `json:"wordSet"`
}
