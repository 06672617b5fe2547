package grpcapi

import (
	"context"
	"math"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/wfunc/walkandtalk/broadcast"
	"github.com/wfunc/walkandtalk/models"
	"github.com/wfunc/walkandtalk/network"
	"github.com/wfunc/walkandtalk/room"
	"github.com/wfunc/walkandtalk/services"
	"github.com/wfunc/walkandtalk/state"
)

type harness struct {
	client *Client
	game   *state.GameState
	hub    *broadcast.Hub
	room   *room.Room
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	names := network.Names{Prefix: "wt"}
	game := state.NewGameState()
	hub := broadcast.NewHub()
	svc := NewService(NewServiceOptions{
		Service: services.NewGameService(services.NewGameServiceOptions{Game: game}),
		Hub:     hub,
		Names:   names,
	})

	listener := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.ServeListener(ctx, listener) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("gRPC server did not stop")
		}
	})

	return &harness{
		client: NewClient(conn),
		game:   game,
		hub:    hub,
		room:   room.NewRoom(room.NewRoomOptions{Game: game, Broadcaster: hub, Names: names}),
	}
}

func TestGRPC_UnaryCalls(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.client.JoinGame(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Player.PlayerID)
	assert.Contains(t, res.Players, 1)

	require.NoError(t, h.client.PlayerMoved(ctx, models.MoveArgs{PlayerID: 1, X: 5, Y: 7}))
	assert.Equal(t, models.Positions{1: {5, 7}}, h.game.SnapshotPositions(false))

	require.NoError(t, h.client.Heartbeat(ctx, 1))
	require.NoError(t, h.client.Heartbeat(ctx, 999))
	require.NoError(t, h.client.LeaveGame(ctx, 1))
	require.NoError(t, h.client.LeaveGame(ctx, 1))
	assert.Equal(t, 0, h.game.Len())
}

func TestGRPC_InvalidMove(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.client.JoinGame(ctx)
	require.NoError(t, err)

	// JSON cannot carry NaN, so exercise the service directly through the
	// server type as well as the wire.
	_, err = (&Service{svc: services.NewGameService(services.NewGameServiceOptions{Game: h.game})}).
		PlayerMoved(ctx, &models.MoveArgs{PlayerID: 1, X: math.NaN()})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = h.client.PlayerMoved(ctx, models.MoveArgs{PlayerID: 1, X: math.Inf(-1)})
	assert.Error(t, err)
	assert.False(t, h.game.PositionsDirty())
}

func TestGRPC_EventStream(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := h.client.Events(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.hub.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err = h.client.JoinGame(ctx)
	require.NoError(t, err)
	require.NoError(t, h.client.PlayerMoved(ctx, models.MoveArgs{PlayerID: 1, X: 2, Y: 3}))
	h.room.Update()

	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "wt.players_joined", ev.Topic)

	ev, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "wt.player_positions", ev.Topic)
	assert.JSONEq(t, `{"1":[2,3]}`, string(ev.Payload))

	cancel()
	require.Eventually(t, func() bool { return h.hub.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestGRPC_EventStreamTopicFilter(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := h.client.Events(ctx, "wt.players_left")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.hub.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, h.hub.Publish("wt.players_joined", []int{1}))
	require.NoError(t, h.hub.Publish("wt.players_left", []int{4}))

	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "wt.players_left", ev.Topic)
	assert.JSONEq(t, `[4]`, string(ev.Payload))
}
