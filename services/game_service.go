// services/game_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/wfunc/walkandtalk/logger"
	"github.com/wfunc/walkandtalk/models"
	"github.com/wfunc/walkandtalk/monitor"
	"github.com/wfunc/walkandtalk/network"
	"github.com/wfunc/walkandtalk/persistence"
	"github.com/wfunc/walkandtalk/state"
	"github.com/wfunc/walkandtalk/timer"
)

// ErrInvalidArgument marks a call rejected before touching the game state.
var ErrInvalidArgument = errors.New("invalid argument")

// GameService maps the remote procedures onto GameState. Every transport
// goes through it.
type GameService struct {
	game    *state.GameState
	journal persistence.Journal
	monitor *monitor.Monitor
	clock   timer.Clock
}

type NewGameServiceOptions struct {
	Game    *state.GameState
	Journal persistence.Journal
	Monitor *monitor.Monitor
	Clock   timer.Clock
}

func NewGameService(opts NewGameServiceOptions) *GameService {
	s := &GameService{
		game:    opts.Game,
		journal: opts.Journal,
		monitor: opts.Monitor,
		clock:   opts.Clock,
	}
	if s.journal == nil {
		s.journal = persistence.Nop{}
	}
	if s.clock == nil {
		s.clock = timer.Real()
	}
	return s
}

// Join adds a player and returns it with a snapshot of every player.
func (s *GameService) Join(ctx context.Context) models.JoinResult {
	s.monitor.IncCall(network.ProcJoinGame)

	res := s.game.Join()
	logger.Log.Infof("Player %d has joined the game", res.Player.PlayerID)
	s.record(ctx, models.SessionEvent{
		PlayerID: res.Player.PlayerID,
		Kind:     models.EventJoined,
		Color:    res.Player.Color,
	})
	return res
}

// Leave removes the player. Leaving twice, or with an unknown id, is fine.
func (s *GameService) Leave(ctx context.Context, playerID int) {
	s.monitor.IncCall(network.ProcLeaveGame)

	if !s.game.RemovePlayer(playerID) {
		logger.Log.Debugf("Leave for unknown player %d", playerID)
		return
	}
	logger.Log.Infof("Player %d has left the game", playerID)
	s.record(ctx, models.SessionEvent{PlayerID: playerID, Kind: models.EventLeft})
}

// Heartbeat refreshes liveness. Unknown ids are dropped without telling the
// caller.
func (s *GameService) Heartbeat(_ context.Context, playerID int) {
	s.monitor.IncCall(network.ProcHeartbeat)

	if !s.game.Heartbeat(playerID) {
		logger.Log.Debugf("Heartbeat for unknown player %d", playerID)
	}
}

// Move validates the coordinates and updates the position. Unknown ids are
// dropped; they come from clients racing a leave or a timeout.
func (s *GameService) Move(_ context.Context, args models.MoveArgs) error {
	s.monitor.IncCall(network.ProcPlayerMoved)

	if err := validateCoordinate("x", args.X); err != nil {
		s.monitor.IncCallError(network.ProcPlayerMoved)
		return err
	}
	if err := validateCoordinate("y", args.Y); err != nil {
		s.monitor.IncCallError(network.ProcPlayerMoved)
		return err
	}

	if !s.game.Move(args.PlayerID, args.X, args.Y) {
		logger.Log.Debugf("Move for unknown player %d", args.PlayerID)
		return nil
	}
	logger.Log.Debugf("Player %d moved to %v/%v", args.PlayerID, args.X, args.Y)
	return nil
}

func validateCoordinate(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a finite number", ErrInvalidArgument, name)
	}
	return nil
}

func (s *GameService) record(ctx context.Context, event models.SessionEvent) {
	event.OccurredAt = s.clock.Now()
	if err := s.journal.Record(ctx, event); err != nil {
		logger.Log.Warnf("Journal %s of player %d: %v", event.Kind, event.PlayerID, err)
	}
}

// RecordTimeouts journals players removed by the liveness sweep.
func (s *GameService) RecordTimeouts(ctx context.Context, ids []int) {
	for _, id := range ids {
		s.record(ctx, models.SessionEvent{PlayerID: id, Kind: models.EventTimedOut})
	}
}
