package grpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wfunc/walkandtalk/broadcast"
	"github.com/wfunc/walkandtalk/logger"
	"github.com/wfunc/walkandtalk/models"
	"github.com/wfunc/walkandtalk/network"
	"github.com/wfunc/walkandtalk/services"
)

// Service serves the game procedures over gRPC and streams hub events.
type Service struct {
	svc    *services.GameService
	hub    *broadcast.Hub
	names  network.Names
	buffer int

	done      chan struct{}
	closeOnce sync.Once
}

type NewServiceOptions struct {
	Service *services.GameService
	Hub     *broadcast.Hub
	Names   network.Names
	// Buffer is the number of events queued per stream.
	Buffer int
}

func NewService(opts NewServiceOptions) *Service {
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	return &Service{
		svc:    opts.Service,
		hub:    opts.Hub,
		names:  opts.Names,
		buffer: buffer,
		done:   make(chan struct{}),
	}
}

func (s *Service) JoinGame(ctx context.Context, _ *JoinGameRequest) (*models.JoinResult, error) {
	res := s.svc.Join(ctx)
	return &res, nil
}

func (s *Service) LeaveGame(ctx context.Context, in *PlayerRequest) (*Empty, error) {
	s.svc.Leave(ctx, in.PlayerID)
	return &Empty{}, nil
}

func (s *Service) Heartbeat(ctx context.Context, in *PlayerRequest) (*Empty, error) {
	s.svc.Heartbeat(ctx, in.PlayerID)
	return &Empty{}, nil
}

func (s *Service) PlayerMoved(ctx context.Context, in *models.MoveArgs) (*Empty, error) {
	if err := s.svc.Move(ctx, *in); err != nil {
		if errors.Is(err, services.ErrInvalidArgument) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &Empty{}, nil
}

// Events streams the requested topics until the client goes away or the
// service is closed.
func (s *Service) Events(in *EventsRequest, stream grpc.ServerStream) error {
	topics := in.Topics
	if len(topics) == 0 {
		topics = []string{
			s.names.Qualify(network.TopicPlayersJoined),
			s.names.Qualify(network.TopicPlayersLeft),
			s.names.Qualify(network.TopicPlayerPositions),
		}
	}

	sub := newStreamSubscriber(uuid.New().String(), topics, s.buffer)
	if err := s.hub.Add(sub); err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	defer s.hub.Remove(sub.GetID())
	logger.Log.Infof("gRPC event stream %s opened for %v", sub.GetID(), topics)

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case <-s.done:
			return status.Error(codes.Unavailable, "server shutting down")
		case ev := <-sub.events:
			if err := stream.SendMsg(&ev); err != nil {
				return err
			}
		}
	}
}

// Close ends every open event stream.
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Serve listens on addr until ctx is cancelled.
func (s *Service) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, listener)
}

func (s *Service) ServeListener(ctx context.Context, listener net.Listener) error {
	srv := grpc.NewServer()
	Register(srv, s)

	go func() {
		<-ctx.Done()
		s.Close()
		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			srv.Stop()
		}
	}()

	logger.Log.Infof("gRPC server listening on %s", listener.Addr())
	if err := srv.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

type streamSubscriber struct {
	id     string
	topics map[string]bool
	events chan Event
}

func newStreamSubscriber(id string, topics []string, buffer int) *streamSubscriber {
	set := make(map[string]bool, len(topics))
	for _, t := range topics {
		set[t] = true
	}
	return &streamSubscriber{id: id, topics: set, events: make(chan Event, buffer)}
}

func (s *streamSubscriber) GetID() string { return s.id }

func (s *streamSubscriber) Subscribed(topic string) bool { return s.topics[topic] }

func (s *streamSubscriber) Deliver(topic string, payload json.RawMessage) error {
	select {
	case s.events <- Event{Topic: topic, Payload: payload}:
		return nil
	default:
		return broadcast.ErrBufferFull
	}
}
