package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/vocabversus/logger"
	"github.com/wfunc/vocabversus/models"
	"github.com/wfunc/vocabversus/room"
)

// CreateGame registers a new game instance in Waiting and returns its id.
func (c *Coordinator) CreateGame(ctx context.Context, req models.CreateGameRequest) (string, error) {
	if req.WordSet == "" {
		return "", fmt.Errorf("%w: word set is required", ErrInvalidGame)
	}
	if req.MaxPlayers < 0 || req.MaxPlayers > MaxPlayersLimit {
		return "", fmt.Errorf("%w: max players must not exceed %d", ErrInvalidGame, MaxPlayersLimit)
	}

	maxPlayers := req.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = c.opts.DefaultMaxPlayers
	}
	id := req.GameID
	if id == "" {
		id = uuid.New().String()
	}

	if _, err := c.rooms.CreateRoom(id, maxPlayers, req.WordSet); err != nil {
		if errors.Is(err, room.ErrRoomExists) {
			return "", fmt.Errorf("%w: game %q already exists", ErrInvalidGame, id)
		}
		return "", err
	}
	c.monitor.SetActiveGames(c.rooms.Len())

	logger.Log.Infof("Created game %s (max %d players, word set %s)", id, maxPlayers, req.WordSet)
	return id, nil
}

// RemoveGame evicts a game: it closes the room, cancels a pending countdown
// and forgets every connection mapped to it.
func (c *Coordinator) RemoveGame(ctx context.Context, gameID string) error {
	r, ok := c.rooms.Remove(gameID)
	if !ok {
		return identifierError(gameID)
	}

	connected := 0
	timerID, closed := r.Close(func() {
		connected = r.Roster().ConnectedCount()
	})
	if closed {
		c.monitor.SubConnectedPlayers(connected)
	}
	c.release(r, timerID)

	logger.Log.Infof("Removed game %s", gameID)
	return nil
}

// release drops everything that still refers to a closed room.
func (c *Coordinator) release(r *room.Room, timerID int64) {
	if timerID != 0 {
		c.timers.RemoveTimer(timerID)
	}
	c.index.RemoveGame(r.ID)
	c.broadcaster.RemoveGroup(r.ID)
	c.monitor.SetActiveGames(c.rooms.Len())
}

// ListGames returns the ids of every registered game, sorted.
func (c *Coordinator) ListGames(ctx context.Context) []string {
	ids := c.rooms.IDs()
	sort.Strings(ids)
	return ids
}

// ExpireIdle removes games that nobody is connected to and that saw no
// operation for longer than the configured TTL, and returns how many were
// removed. Games with connected players are never expired, however quiet.
func (c *Coordinator) ExpireIdle(ctx context.Context) int {
	if c.opts.IdleTTL <= 0 {
		return 0
	}

	now := time.Now()
	n := 0
	for _, id := range c.rooms.Idle(c.opts.IdleTTL, now) {
		r, ok := c.rooms.Get(id)
		if !ok {
			continue
		}
		timerID, closed := r.CloseIfAbandoned(c.opts.IdleTTL, now)
		if !closed {
			continue
		}
		c.rooms.RemoveRoom(r)
		c.release(r, timerID)
		c.monitor.IncGamesExpired()
		n++
	}
	if n > 0 {
		logger.Log.Infof("Expired %d idle games", n)
	}
	return n
}

// StartExpiry sweeps idle games every interval. The returned handle cancels
// the sweep via the scheduler.
func (c *Coordinator) StartExpiry(interval time.Duration) int64 {
	return c.timers.AddTimer(interval, interval, func() {
		c.ExpireIdle(context.Background())
	})
}
