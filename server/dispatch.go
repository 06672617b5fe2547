package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wfunc/walkandtalk/logger"
	"github.com/wfunc/walkandtalk/models"
	"github.com/wfunc/walkandtalk/network"
	"github.com/wfunc/walkandtalk/services"
	"github.com/wfunc/walkandtalk/session"
)

var (
	ErrUnknownProcedure   = errors.New("unknown procedure")
	ErrUnknownMessageType = errors.New("unknown message type")
)

func (s *GameServer) handleMessage(ctx context.Context, sess *session.Session, data []byte) {
	var msg network.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.reply(sess, network.Message{Type: network.MsgTypeError, Error: "malformed message: " + err.Error()})
		return
	}

	switch msg.Type {
	case network.MsgTypeCall:
		result, err := s.call(ctx, sess, msg)
		if err != nil {
			logger.Log.Infof("Call %s from session %s failed: %v", msg.Procedure, sess.GetID(), err)
			s.reply(sess, network.Message{Type: network.MsgTypeError, ID: msg.ID, Error: err.Error()})
			return
		}
		s.reply(sess, network.Message{Type: network.MsgTypeResult, ID: msg.ID, Result: result})
	case network.MsgTypeSubscribe:
		sess.Subscribe(msg.Topic)
		s.reply(sess, network.Message{Type: network.MsgTypeResult, ID: msg.ID})
	case network.MsgTypeUnsubscribe:
		sess.Unsubscribe(msg.Topic)
		s.reply(sess, network.Message{Type: network.MsgTypeResult, ID: msg.ID})
	default:
		s.reply(sess, network.Message{
			Type:  network.MsgTypeError,
			ID:    msg.ID,
			Error: fmt.Sprintf("%v: %q", ErrUnknownMessageType, msg.Type),
		})
	}
}

// call runs one procedure. A nil result means the procedure returns nothing.
func (s *GameServer) call(ctx context.Context, sess *session.Session, msg network.Message) (json.RawMessage, error) {
	procedure, ok := s.names.Bare(msg.Procedure)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProcedure, msg.Procedure)
	}

	switch procedure {
	case network.ProcJoinGame:
		// Browser clients send an info object here; it carries nothing
		// the server uses.
		res := s.service.Join(ctx)
		sess.TrackPlayer(res.Player.PlayerID)
		return json.Marshal(res)

	case network.ProcLeaveGame:
		id, err := playerIDArg(msg.Args)
		if err != nil {
			return nil, err
		}
		s.service.Leave(ctx, id)
		sess.ForgetPlayer(id)
		return nil, nil

	case network.ProcHeartbeat:
		id, err := playerIDArg(msg.Args)
		if err != nil {
			return nil, err
		}
		s.service.Heartbeat(ctx, id)
		return nil, nil

	case network.ProcPlayerMoved:
		if len(msg.Args) < 1 {
			return nil, fmt.Errorf("%w: player_moved expects a {playerId, x, y} argument", services.ErrInvalidArgument)
		}
		var args models.MoveArgs
		if err := json.Unmarshal(msg.Args[0], &args); err != nil {
			return nil, fmt.Errorf("%w: %v", services.ErrInvalidArgument, err)
		}
		return nil, s.service.Move(ctx, args)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProcedure, msg.Procedure)
	}
}

func playerIDArg(args []json.RawMessage) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("%w: missing player id", services.ErrInvalidArgument)
	}
	var id int
	if err := json.Unmarshal(args[0], &id); err != nil {
		return 0, fmt.Errorf("%w: player id: %v", services.ErrInvalidArgument, err)
	}
	return id, nil
}

func (s *GameServer) reply(sess *session.Session, msg network.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Errorf("Encode reply for session %s: %v", sess.GetID(), err)
		return
	}
	if err := sess.Enqueue(data); err != nil {
		logger.Log.Warnf("Reply to session %s dropped: %v", sess.GetID(), err)
	}
}
