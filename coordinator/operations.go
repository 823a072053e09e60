package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/wfunc/vocabversus/logger"
	"github.com/wfunc/vocabversus/models"
	"github.com/wfunc/vocabversus/room"
	"github.com/wfunc/vocabversus/session"
	"github.com/wfunc/vocabversus/state"
)

// CheckAvailability reports a game's state and head count without changing it.
func (c *Coordinator) CheckAvailability(ctx context.Context, gameID string) (resp *models.CheckGameResponse, err error) {
	defer c.observe("CheckGame", time.Now(), &err)

	r, ok := c.rooms.Get(gameID)
	if !ok {
		return nil, identifierError(gameID)
	}

	err = r.Exclusive(func() error {
		resp = &models.CheckGameResponse{
			GameId:         r.ID,
			GameState:      r.State(),
			PlayerCount:    r.Roster().Len(),
			MaxPlayerCount: r.Roster().MaxPlayers(),
		}
		return nil
	})
	if err != nil {
		return nil, translate(gameID, err)
	}
	return resp, nil
}

// Join adds the connection to the game as a new player. The player identifier
// is the connection identifier, so the same connection joining twice is a
// duplicate. Joining is open in every state; a late joiner rebuilds its view
// from the returned players and rounds.
func (c *Coordinator) Join(ctx context.Context, gameID, connectionID, username string) (resp *models.JoinGameResponse, err error) {
	defer c.observe("Join", time.Now(), &err)

	r, ok := c.rooms.Get(gameID)
	if !ok {
		return nil, identifierError(gameID)
	}
	if err := checkUsername(username); err != nil {
		return nil, addFailed(err)
	}
	playerID := connectionID

	err = r.Exclusive(func() error {
		if err := r.Roster().AddPlayer(playerID, username); err != nil {
			return addFailed(err)
		}
		err := c.index.Register(session.PlayerConnection{
			ConnectionID: connectionID,
			GameID:       gameID,
			PlayerID:     playerID,
		})
		if err != nil {
			r.Roster().RemovePlayer(playerID)
			return addFailed(err)
		}

		c.broadcaster.AddToGroup(gameID, connectionID)
		c.emitOthers(gameID, connectionID, EventUserJoined, username, playerID)

		resp = &models.JoinGameResponse{
			PersonalIdentifier: playerID,
			Players:            r.Roster().Snapshot(),
			Rounds:             r.Rounds(),
		}
		return nil
	})
	if err != nil {
		return nil, translate(gameID, err)
	}

	c.monitor.IncConnectedPlayers()
	logger.Log.Infof("Connection %s joined game %s as %q", connectionID, gameID, username)
	return resp, nil
}

func checkUsername(username string) error {
	if username == "" {
		return ErrUsernameRequired
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	return nil
}

func addFailed(err error) *Fault {
	msg := "could not add user, either the game is full or the user has already joined"
	if errors.Is(err, ErrUsernameTooLong) || errors.Is(err, ErrUsernameRequired) {
		msg = fmt.Sprintf("username must be 1 to %d characters", MaxUsernameLength)
	}
	return &Fault{Code: CodeUserAddFailed, Message: msg, Err: err}
}

// Kick removes a player that is no longer connected. actorConnectionID is the
// caller's connection and does not receive the notification; it may be empty
// for administrative kicks.
func (c *Coordinator) Kick(ctx context.Context, gameID, actorConnectionID, userIdentifier string) (err error) {
	defer c.observe("Kick", time.Now(), &err)

	r, ok := c.rooms.Get(gameID)
	if !ok {
		return identifierError(gameID)
	}

	removed := false
	err = r.Exclusive(func() error {
		if p, exists := r.Roster().Player(userIdentifier); exists && p.IsConnected {
			return notAllowed("active players can not be kicked")
		}

		if removed = r.Roster().RemovePlayer(userIdentifier); removed {
			c.emitOthers(gameID, actorConnectionID, EventUserRemoved, userIdentifier)
		}
		return nil
	})
	if err != nil {
		return translate(gameID, err)
	}

	if removed {
		logger.Log.Infof("Player %s kicked from game %s", userIdentifier, gameID)
	}
	return nil
}

// SetReady stores the caller's ready flag and, if that makes every connected
// player ready while the game is Waiting, starts the countdown. The check runs
// in the same section as the toggle, so concurrent toggles arm at most once,
// and toggles after Waiting never arm again.
func (c *Coordinator) SetReady(ctx context.Context, gameID, connectionID string, ready bool) (err error) {
	defer c.observe("Ready", time.Now(), &err)

	r, ok := c.rooms.Get(gameID)
	if !ok {
		return identifierError(gameID)
	}

	err = r.Exclusive(func() error {
		if err := r.Roster().SetReady(connectionID, ready); err != nil {
			return &Fault{Code: CodeUserEditFailed, Message: "failed to set user ready state", Err: err}
		}
		c.emitOthers(gameID, connectionID, EventUserReady, ready, connectionID)

		if r.State() == state.Waiting && r.Roster().AllReady() {
			return c.beginCountdown(r)
		}
		return nil
	})
	return translate(gameID, err)
}

// OnDisconnect marks the connection's player as disconnected. Unknown
// connections are ignored: they never joined or were already cleaned up.
//
// The index entry is dropped while the roster record stays. The player id is
// the connection id, and a closed connection never comes back, so nothing
// could look the entry up again; keeping it would only leak.
func (c *Coordinator) OnDisconnect(ctx context.Context, connectionID string) {
	pc, ok := c.index.Lookup(connectionID)
	if !ok {
		return
	}
	defer c.index.Remove(connectionID)

	r, ok := c.rooms.Get(pc.GameID)
	if !ok {
		return
	}

	disconnected := false
	err := r.Exclusive(func() error {
		c.broadcaster.RemoveFromGroup(pc.GameID, connectionID)
		if disconnected = r.Roster().DisconnectPlayer(pc.PlayerID); disconnected {
			c.emit(pc.GameID, EventUserLeft, connectionID)
		}
		return nil
	})
	if err != nil && !errors.Is(err, room.ErrRoomClosed) {
		logger.Log.Errorf("Disconnect of %s from game %s failed: %v", connectionID, pc.GameID, err)
		return
	}

	if disconnected {
		c.monitor.DecConnectedPlayers()
		logger.Log.Infof("Connection %s left game %s", connectionID, pc.GameID)
	}
}
