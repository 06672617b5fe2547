// room/room.go
package room

import (
	"context"
	"time"

	"github.com/wfunc/walkandtalk/broadcast"
	"github.com/wfunc/walkandtalk/logger"
	"github.com/wfunc/walkandtalk/monitor"
	"github.com/wfunc/walkandtalk/network"
	"github.com/wfunc/walkandtalk/state"
	"github.com/wfunc/walkandtalk/timer"
)

const (
	DefaultTickInterval  = 10 * time.Millisecond
	DefaultPlayerTimeout = 10 * time.Second
)

// Room drives the broadcast loop of one game session: every tick it sweeps
// idle players and tells subscribers who left, who joined and where
// everyone is.
type Room struct {
	game        *state.GameState
	broadcaster broadcast.Publisher
	names       network.Names
	monitor     *monitor.Monitor
	clock       timer.Clock
	interval    time.Duration
	timeout     time.Duration
	onExpired   func(ids []int)
}

type NewRoomOptions struct {
	Game         *state.GameState
	Broadcaster  broadcast.Publisher
	Names        network.Names
	Monitor      *monitor.Monitor
	Clock        timer.Clock
	TickInterval time.Duration
	Timeout      time.Duration
	// OnExpired is called after a sweep removed players.
	OnExpired func(ids []int)
}

func NewRoom(opts NewRoomOptions) *Room {
	r := &Room{
		game:        opts.Game,
		broadcaster: opts.Broadcaster,
		names:       opts.Names,
		monitor:     opts.Monitor,
		clock:       opts.Clock,
		interval:    opts.TickInterval,
		timeout:     opts.Timeout,
		onExpired:   opts.OnExpired,
	}
	if r.clock == nil {
		r.clock = timer.Real()
	}
	if r.interval <= 0 {
		r.interval = DefaultTickInterval
	}
	if r.timeout == 0 {
		r.timeout = DefaultPlayerTimeout
	}
	return r
}

// Run ticks until ctx is cancelled.
func (r *Room) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	logger.Log.Infof("Game loop started, tick %v, player timeout %v", r.interval, r.timeout)
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Game loop stopped")
			return
		case <-ticker.C():
			r.safeUpdate()
		}
	}
}

func (r *Room) safeUpdate() {
	defer func() {
		if p := recover(); p != nil {
			logger.Log.Errorf("Game loop tick panicked: %v", p)
		}
	}()
	r.Update()
}

// Update runs one tick: left, then joined, then positions.
func (r *Room) Update() {
	start := time.Now()
	defer func() { r.monitor.ObserveTick(time.Since(start)) }()

	removed, err := r.game.SweepExpired(r.timeout)
	if err != nil {
		logger.Log.Errorf("Liveness sweep failed: %v", err)
	} else if len(removed) > 0 {
		logger.Log.Infof("Purged players: %v", removed)
		r.monitor.AddTimedOut(len(removed))
		if r.onExpired != nil {
			r.onExpired(removed)
		}
		r.publish(network.TopicPlayersLeft, removed)
	}

	if joined := r.game.DrainNewPlayers(); len(joined) > 0 {
		r.publish(network.TopicPlayersJoined, joined)
	}

	if r.game.PositionsDirty() {
		r.publish(network.TopicPlayerPositions, r.game.SnapshotPositions(true))
	}

	r.monitor.SetOnlinePlayers(r.game.Len())
}

// publish never stops the tick: failures are logged and counted.
func (r *Room) publish(topic string, payload interface{}) {
	r.monitor.IncPublished(topic)
	if err := r.broadcaster.Publish(r.names.Qualify(topic), payload); err != nil {
		r.monitor.IncPublishFailure(topic)
		logger.Log.Warnf("Publish %s failed: %v", topic, err)
	}
}
