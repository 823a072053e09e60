// Package coordinator applies client operations to game instances: it owns
// the lobby rules, the all-ready countdown and the Started transition, and
// decides which events each operation emits.
//
// Every operation on a game runs inside that game's room.Room.Exclusive
// section, so operations on one game are serialized while different games
// proceed in parallel. Events are broadcast from inside the section, which
// keeps the event order of one game identical to the order its operations
// were applied in.
package coordinator

import (
	"context"
	"time"

	"github.com/wfunc/vocabversus/logger"
	"github.com/wfunc/vocabversus/models"
	"github.com/wfunc/vocabversus/monitor"
	"github.com/wfunc/vocabversus/room"
	"github.com/wfunc/vocabversus/session"
)

// Outbound event names.
const (
	EventUserJoined       = "UserJoined"
	EventUserLeft         = "UserLeft"
	EventUserRemoved      = "UserRemoved"
	EventUserReady        = "UserReady"
	EventGameStateChanged = "GameStateChanged"
	EventGameStarting     = "GameStarting"
	EventStartRound       = "StartRound"
)

// Limits keeping every reply and event inside one 64 KiB frame, even with
// every name at full length and JSON escaping.
const (
	MaxUsernameLength = 64
	MaxPlayersLimit   = 64
)

// Broadcaster delivers events to the connections subscribed to a game.
type Broadcaster interface {
	AddToGroup(group, connectionID string)
	RemoveFromGroup(group, connectionID string)
	RemoveGroup(group string)
	SendToGroup(group, event string, args ...interface{}) error
	SendToGroupExcept(group, excludeConnectionID, event string, args ...interface{}) error
}

// RoundGenerator produces the material for a game's next round.
type RoundGenerator interface {
	CreateGameRound(ctx context.Context, gameID, wordSetID string) (*models.GameRound, error)
}

// Scheduler runs delayed callbacks and can cancel them by handle.
type Scheduler interface {
	AddTimer(delay time.Duration, interval time.Duration, callback func()) int64
	RemoveTimer(timerID int64) bool
}

type Options struct {
	// Countdown is the delay between all players being ready and the start.
	Countdown         time.Duration
	DefaultMaxPlayers int
	// IdleTTL evicts games without any operation for this long. Zero disables.
	IdleTTL      time.Duration
	RoundTimeout time.Duration
	Now          func() time.Time
}

func (o *Options) setDefaults() {
	if o.Countdown <= 0 {
		o.Countdown = 10 * time.Second
	}
	if o.DefaultMaxPlayers <= 0 {
		o.DefaultMaxPlayers = 8
	}
	if o.DefaultMaxPlayers > MaxPlayersLimit {
		o.DefaultMaxPlayers = MaxPlayersLimit
	}
	if o.RoundTimeout <= 0 {
		o.RoundTimeout = 5 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type Coordinator struct {
	rooms       *room.Manager
	index       *session.Index
	broadcaster Broadcaster
	rounds      RoundGenerator
	timers      Scheduler
	monitor     *monitor.Monitor
	opts        Options
}

func New(rooms *room.Manager, index *session.Index, broadcaster Broadcaster, rounds RoundGenerator,
	timers Scheduler, mon *monitor.Monitor, opts Options) *Coordinator {
	opts.setDefaults()
	return &Coordinator{
		rooms:       rooms,
		index:       index,
		broadcaster: broadcaster,
		rounds:      rounds,
		timers:      timers,
		monitor:     mon,
		opts:        opts,
	}
}

func (c *Coordinator) observe(operation string, start time.Time, errp *error) {
	c.monitor.ObserveOperation(operation, result(*errp), time.Since(start))
}

// emit broadcasts to the whole group. Must be called inside the room section.
func (c *Coordinator) emit(gameID, event string, args ...interface{}) {
	if err := c.broadcaster.SendToGroup(gameID, event, args...); err != nil {
		logger.Log.Errorf("Broadcast %s to game %s failed: %v", event, gameID, err)
	}
}

// emitOthers broadcasts to the group minus the acting connection.
func (c *Coordinator) emitOthers(gameID, actorConnectionID, event string, args ...interface{}) {
	if err := c.broadcaster.SendToGroupExcept(gameID, actorConnectionID, event, args...); err != nil {
		logger.Log.Errorf("Broadcast %s to game %s failed: %v", event, gameID, err)
	}
}
