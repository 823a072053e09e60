package coordinator

import (
	"context"
	"errors"

	"github.com/wfunc/vocabversus/logger"
	"github.com/wfunc/vocabversus/room"
	"github.com/wfunc/vocabversus/state"
)

var errStaleCountdown = errors.New("countdown no longer armed")

// beginCountdown moves r from Waiting to Starting and arms the start timer.
// Caller holds r's Exclusive section.
func (c *Coordinator) beginCountdown(r *room.Room) error {
	if err := r.ChangeState(state.Starting); err != nil {
		return err
	}

	startsAt := c.opts.Now().Add(c.opts.Countdown)
	c.emit(r.ID, EventGameStateChanged, state.Starting)
	c.emit(r.ID, EventGameStarting, startsAt.UnixMilli())

	timerID := c.timers.AddTimer(c.opts.Countdown, 0, func() {
		c.completeCountdown(r)
	})
	r.ArmCountdown(timerID, startsAt)
	c.monitor.IncCountdownsArmed()

	logger.Log.Infof("Game %s starting at %s", r.ID, startsAt.Format("15:04:05.000"))
	return nil
}

// completeCountdown runs on the timer goroutine. It re-enters r's section and
// does nothing if r was evicted, replaced, or is no longer counting down.
func (c *Coordinator) completeCountdown(r *room.Room) {
	if current, ok := c.rooms.Get(r.ID); !ok || current != r {
		logger.Log.Infof("Countdown fired for evicted game %s, ignoring", r.ID)
		return
	}

	err := r.Exclusive(func() error {
		if id, _ := r.Countdown(); id == 0 || r.State() != state.Starting {
			return errStaleCountdown
		}
		r.ClearCountdown()
		if err := r.ChangeState(state.Started); err != nil {
			return err
		}
		c.emit(r.ID, EventGameStateChanged, state.Started)
		return nil
	})
	switch {
	case errors.Is(err, room.ErrRoomClosed), errors.Is(err, errStaleCountdown):
		logger.Log.Infof("Countdown for game %s no longer applies: %v", r.ID, err)
		return
	case err != nil:
		logger.Log.Errorf("Starting game %s failed: %v", r.ID, err)
		return
	}
	c.monitor.IncGamesStarted()

	c.startRound(r)
}

// startRound generates round material outside the room section, since it may
// hit storage, then records and announces it.
func (c *Coordinator) startRound(r *room.Room) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.RoundTimeout)
	defer cancel()

	round, err := c.rounds.CreateGameRound(ctx, r.ID, r.WordSet)
	if err != nil {
		c.monitor.IncRoundFailures()
		logger.Log.Errorf("Round generation for game %s failed: %v", r.ID, err)
		return
	}

	err = r.Exclusive(func() error {
		round.Index = len(r.Rounds())
		r.AddRound(*round)
		c.emit(r.ID, EventStartRound, round)
		return nil
	})
	if err != nil {
		logger.Log.Infof("Game %s closed before round %s could start: %v", r.ID, round.ID, err)
	}
}
