package room

import (
	"errors"

	"github.com/wfunc/vocabversus/models"
)

var (
	ErrRosterFull      = errors.New("roster is full")
	ErrDuplicatePlayer = errors.New("player already joined")
	ErrPlayerNotFound  = errors.New("player not found")
)

// Roster maps player identifiers to their records. It has no lock of its own;
// it is only touched inside the owning Room's Exclusive section.
type Roster struct {
	maxPlayers int
	players    map[string]*models.PlayerRecord
}

func NewRoster(maxPlayers int) *Roster {
	return &Roster{
		maxPlayers: maxPlayers,
		players:    make(map[string]*models.PlayerRecord),
	}
}

// AddPlayer inserts a connected, not-ready player. A duplicate is reported
// even when the roster is also full.
func (r *Roster) AddPlayer(playerID, name string) error {
	if _, exists := r.players[playerID]; exists {
		return ErrDuplicatePlayer
	}
	if len(r.players) >= r.maxPlayers {
		return ErrRosterFull
	}
	r.players[playerID] = &models.PlayerRecord{Name: name, IsConnected: true}
	return nil
}

// RemovePlayer is idempotent and reports whether a record was deleted.
func (r *Roster) RemovePlayer(playerID string) bool {
	if _, exists := r.players[playerID]; !exists {
		return false
	}
	delete(r.players, playerID)
	return true
}

// DisconnectPlayer keeps the record so it can still be kicked. Absent players
// are ignored since disconnects race with kicks.
func (r *Roster) DisconnectPlayer(playerID string) bool {
	p, exists := r.players[playerID]
	if !exists {
		return false
	}
	p.IsConnected = false
	return true
}

func (r *Roster) SetReady(playerID string, ready bool) error {
	p, exists := r.players[playerID]
	if !exists || !p.IsConnected {
		return ErrPlayerNotFound
	}
	p.IsReady = ready
	return nil
}

// AllReady is true iff at least one player is connected and every connected
// player is ready. Disconnected players are ignored whatever their flag says.
func (r *Roster) AllReady() bool {
	connected := 0
	for _, p := range r.players {
		if !p.IsConnected {
			continue
		}
		if !p.IsReady {
			return false
		}
		connected++
	}
	return connected > 0
}

// Player returns a copy of one record.
func (r *Roster) Player(playerID string) (models.PlayerRecord, bool) {
	p, exists := r.players[playerID]
	if !exists {
		return models.PlayerRecord{}, false
	}
	return *p, true
}

func (r *Roster) Len() int {
	return len(r.players)
}

func (r *Roster) MaxPlayers() int {
	return r.maxPlayers
}

// ConnectedCount returns how many players currently hold a live connection.
func (r *Roster) ConnectedCount() int {
	n := 0
	for _, p := range r.players {
		if p.IsConnected {
			n++
		}
	}
	return n
}

// Snapshot returns a copy safe to hand outside the room lock.
func (r *Roster) Snapshot() map[string]models.PlayerRecord {
	out := make(map[string]models.PlayerRecord, len(r.players))
	for id, p := range r.players {
		out[id] = *p
	}
	return out
}
