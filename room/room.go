// room/room.go
package room

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/vocabversus/models"
	"github.com/wfunc/vocabversus/state"
)

// ErrRoomClosed is returned by Exclusive once the room has been evicted.
var ErrRoomClosed = errors.New("room closed")

// Room is one game instance: its lifecycle, roster, rounds and countdown.
// Everything except the immutable settings is guarded by mu and reached
// through Exclusive.
type Room struct {
	ID         string
	MaxPlayers int
	WordSet    string
	CreatedAt  time.Time

	mu          sync.Mutex
	machine     state.StateMachine
	roster      *Roster
	rounds      []models.GameRound
	countdownID int64
	startsAt    time.Time
	closed      bool

	lastActive atomic.Int64 // unix nanos
}

// NewRoom 创建一个新房间
func NewRoom(id string, maxPlayers int, wordSet string) *Room {
	now := time.Now()
	r := &Room{
		ID:         id,
		MaxPlayers: maxPlayers,
		WordSet:    wordSet,
		CreatedAt:  now,
		machine:    state.NewLifecycle(),
		roster:     NewRoster(maxPlayers),
	}
	r.lastActive.Store(now.UnixNano())
	return r
}

// Exclusive runs fn as the only operation on this room. Rooms are independent,
// so Exclusive on different rooms never contends.
func (r *Room) Exclusive(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	r.lastActive.Store(time.Now().UnixNano())
	return fn()
}

// The accessors below must only be called from inside Exclusive.

func (r *Room) Roster() *Roster {
	return r.roster
}

func (r *Room) State() state.GameState {
	return r.machine.GetCurrentState()
}

func (r *Room) ChangeState(to state.GameState) error {
	return r.machine.ChangeState(to)
}

// ArmCountdown records the timer handle of the countdown towards startsAt.
func (r *Room) ArmCountdown(timerID int64, startsAt time.Time) {
	r.countdownID = timerID
	r.startsAt = startsAt
}

// Countdown returns the armed timer handle, zero when none is armed.
func (r *Room) Countdown() (int64, time.Time) {
	return r.countdownID, r.startsAt
}

func (r *Room) ClearCountdown() {
	r.countdownID = 0
}

func (r *Room) AddRound(round models.GameRound) {
	r.rounds = append(r.rounds, round)
}

func (r *Room) Rounds() []models.GameRound {
	out := make([]models.GameRound, len(r.rounds))
	copy(out, r.rounds)
	return out
}

// Close marks the room closed and hands back the countdown handle, if any, so
// the caller can cancel it. final, when set, runs under the lock just before
// the room closes. Closing twice reports false.
func (r *Room) Close(final func()) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, false
	}
	if final != nil {
		final()
	}
	return r.closeLocked(), true
}

// CloseIfAbandoned closes the room only when nobody is connected and nothing
// ran through Exclusive for longer than ttl. The check and the close share
// one section, so a join cannot slip in between.
func (r *Room) CloseIfAbandoned(ttl time.Duration, now time.Time) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || now.Sub(r.LastActive()) <= ttl || r.roster.ConnectedCount() > 0 {
		return 0, false
	}
	return r.closeLocked(), true
}

func (r *Room) closeLocked() int64 {
	r.closed = true
	id := r.countdownID
	r.countdownID = 0
	return id
}

// LastActive is the time of the last Exclusive call. Safe without the lock.
func (r *Room) LastActive() time.Time {
	return time.Unix(0, r.lastActive.Load())
}
