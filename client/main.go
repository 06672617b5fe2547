package main

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"github.com/wfunc/walkandtalk/logger"
	"github.com/wfunc/walkandtalk/models"
	"github.com/wfunc/walkandtalk/network"
)

// demoClient joins the game over the websocket endpoint and random-walks
// a player until interrupted.
type demoClient struct {
	conn   *websocket.Conn
	names  network.Names
	nextID atomic.Uint64

	mutex   sync.Mutex
	pending map[uint64]chan network.Message
}

func (c *demoClient) send(msg network.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// call sends a procedure call and waits for its result.
func (c *demoClient) call(ctx context.Context, procedure string, args ...interface{}) (json.RawMessage, error) {
	msg := network.Message{
		Type:      network.MsgTypeCall,
		ID:        c.nextID.Add(1),
		Procedure: c.names.Qualify(procedure),
	}
	for _, a := range args {
		raw, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		msg.Args = append(msg.Args, raw)
	}

	reply := make(chan network.Message, 1)
	c.mutex.Lock()
	c.pending[msg.ID] = reply
	c.mutex.Unlock()
	defer func() {
		c.mutex.Lock()
		delete(c.pending, msg.ID)
		c.mutex.Unlock()
	}()

	if err := c.send(msg); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-reply:
		if res.Type == network.MsgTypeError {
			return nil, &callError{procedure: procedure, message: res.Error}
		}
		return res.Result, nil
	}
}

type callError struct {
	procedure string
	message   string
}

func (e *callError) Error() string {
	return e.procedure + ": " + e.message
}

func (c *demoClient) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Infof("Read loop stopped: %v", err)
			return
		}
		var msg network.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Log.Warnf("Malformed message: %v", err)
			continue
		}
		if msg.Type == network.MsgTypeEvent {
			logger.Log.Infof("Event %s: %s", msg.Topic, msg.Payload)
			continue
		}
		c.mutex.Lock()
		reply, ok := c.pending[msg.ID]
		c.mutex.Unlock()
		if ok {
			reply <- msg
		}
	}
}

func main() {
	addr := pflag.String("addr", "localhost:8080", "websocket server address")
	prefix := pflag.String("prefix", "at.theduke.wt", "procedure and topic prefix")
	heartbeat := pflag.Duration("heartbeat", 5*time.Second, "heartbeat interval")
	step := pflag.Duration("step", 200*time.Millisecond, "movement interval")
	pflag.Parse()

	if err := logger.Init(logger.Options{Level: "info"}); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	logger.Log.Infof("Connecting to %s", u.String())
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		logger.Log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	c := &demoClient{
		conn:    conn,
		names:   network.Names{Prefix: *prefix},
		pending: make(map[uint64]chan network.Message),
	}
	go c.readLoop()

	for _, topic := range []string{network.TopicPlayersJoined, network.TopicPlayersLeft, network.TopicPlayerPositions} {
		if err := c.send(network.Message{Type: network.MsgTypeSubscribe, Topic: c.names.Qualify(topic)}); err != nil {
			logger.Log.Fatalf("Subscribe %s failed: %v", topic, err)
		}
	}

	raw, err := c.call(ctx, network.ProcJoinGame, map[string]any{})
	if err != nil {
		logger.Log.Fatalf("Join failed: %v", err)
	}
	var joined models.JoinResult
	if err := json.Unmarshal(raw, &joined); err != nil {
		logger.Log.Fatalf("Malformed join result: %v", err)
	}
	me := joined.Player
	logger.Log.Infof("Joined as player %d (%s), %d players online", me.PlayerID, me.Color, len(joined.Players))

	beat := time.NewTicker(*heartbeat)
	defer beat.Stop()
	walk := time.NewTicker(*step)
	defer walk.Stop()

	x, y := me.PosX, me.PosY
	for {
		select {
		case <-ctx.Done():
			leaveCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if _, err := c.call(leaveCtx, network.ProcLeaveGame, me.PlayerID); err != nil {
				logger.Log.Warnf("Leave failed: %v", err)
			}
			cancel()
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-beat.C:
			if _, err := c.call(ctx, network.ProcHeartbeat, me.PlayerID); err != nil {
				logger.Log.Warnf("Heartbeat failed: %v", err)
			}
		case <-walk.C:
			x += rand.Float64()*10 - 5
			y += rand.Float64()*10 - 5
			move := models.MoveArgs{PlayerID: me.PlayerID, X: x, Y: y}
			if _, err := c.call(ctx, network.ProcPlayerMoved, move); err != nil {
				logger.Log.Warnf("Move failed: %v", err)
			}
		}
	}
}
