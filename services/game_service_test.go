package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/walkandtalk/models"
	"github.com/wfunc/walkandtalk/monitor"
	"github.com/wfunc/walkandtalk/network"
	"github.com/wfunc/walkandtalk/state"
	"github.com/wfunc/walkandtalk/timer"
)

type fakeJournal struct {
	mutex  sync.Mutex
	events []models.SessionEvent
	err    error
}

func (f *fakeJournal) Record(_ context.Context, e models.SessionEvent) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakeJournal) Close() error { return nil }

func (f *fakeJournal) kinds() []models.SessionEventKind {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	kinds := make([]models.SessionEventKind, 0, len(f.events))
	for _, e := range f.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *GameService
	game    *state.GameState
	journal *fakeJournal
	monitor *monitor.Monitor
}

func newFixture() *fixture {
	clock := timer.NewManual(epoch)
	game := state.NewGameState(state.WithClock(clock))
	journal := &fakeJournal{}
	mon := monitor.NewMonitor("wt_services")
	return &fixture{
		svc: NewGameService(NewGameServiceOptions{
			Game:    game,
			Journal: journal,
			Monitor: mon,
			Clock:   clock,
		}),
		game:    game,
		journal: journal,
		monitor: mon,
	}
}

func TestGameService_JoinAndLeave(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res := f.svc.Join(ctx)
	assert.Equal(t, 1, res.Player.PlayerID)
	assert.Equal(t, res.Player, res.Players[1])

	f.svc.Leave(ctx, res.Player.PlayerID)
	f.svc.Leave(ctx, res.Player.PlayerID)
	f.svc.Leave(ctx, 404)

	assert.Equal(t, 0, f.game.Len())
	assert.Equal(t, []models.SessionEventKind{models.EventJoined, models.EventLeft}, f.journal.kinds())
	assert.Equal(t, res.Player.Color, f.journal.events[0].Color)
	assert.Equal(t, epoch, f.journal.events[0].OccurredAt)

	calls := f.monitor.Metrics().Calls
	assert.Equal(t, 1.0, testutil.ToFloat64(calls.WithLabelValues(network.ProcJoinGame)))
	assert.Equal(t, 3.0, testutil.ToFloat64(calls.WithLabelValues(network.ProcLeaveGame)))
}

func TestGameService_MoveRejectsNonFinite(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.svc.Join(ctx).Player.PlayerID

	for _, args := range []models.MoveArgs{
		{PlayerID: id, X: math.NaN(), Y: 1},
		{PlayerID: id, X: 1, Y: math.Inf(1)},
		{PlayerID: id, X: math.Inf(-1), Y: 0},
	} {
		err := f.svc.Move(ctx, args)
		assert.True(t, errors.Is(err, ErrInvalidArgument), "args %+v", args)
	}

	assert.False(t, f.game.PositionsDirty())
	assert.Equal(t, 3.0, testutil.ToFloat64(f.monitor.Metrics().CallErrors.WithLabelValues(network.ProcPlayerMoved)))
}

func TestGameService_MoveAndHeartbeat(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.svc.Join(ctx).Player.PlayerID

	require.NoError(t, f.svc.Move(ctx, models.MoveArgs{PlayerID: id, X: -3.5, Y: 2}))
	assert.Equal(t, models.Positions{id: {-3.5, 2}}, f.game.SnapshotPositions(true))

	f.svc.Heartbeat(ctx, id)
	_, ok := f.game.GetPlayer(id)
	assert.True(t, ok)
}

func TestGameService_UnknownPlayerIsNoop(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	assert.NoError(t, f.svc.Move(ctx, models.MoveArgs{PlayerID: 9, X: 1, Y: 1}))
	f.svc.Heartbeat(ctx, 9)

	assert.Equal(t, 0, f.game.Len())
	assert.False(t, f.game.PositionsDirty())
	assert.Empty(t, f.journal.kinds())
}

func TestGameService_JournalFailureDoesNotFailCall(t *testing.T) {
	f := newFixture()
	f.journal.err = errors.New("database down")

	res := f.svc.Join(context.Background())
	assert.Equal(t, 1, res.Player.PlayerID)
	assert.Equal(t, 1, f.game.Len())
}

func TestGameService_RecordTimeouts(t *testing.T) {
	f := newFixture()

	f.svc.RecordTimeouts(context.Background(), []int{4, 7})

	require.Len(t, f.journal.events, 2)
	assert.Equal(t, 4, f.journal.events[0].PlayerID)
	assert.Equal(t, models.EventTimedOut, f.journal.events[1].Kind)
}

func TestNewGameService_Defaults(t *testing.T) {
	svc := NewGameService(NewGameServiceOptions{Game: state.NewGameState()})

	assert.NotPanics(t, func() {
		res := svc.Join(context.Background())
		svc.Leave(context.Background(), res.Player.PlayerID)
	})
}
