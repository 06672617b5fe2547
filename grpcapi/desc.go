package grpcapi

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"

	"github.com/wfunc/walkandtalk/models"
)

const ServiceName = "walkandtalk.Game"

type JoinGameRequest struct {
	// Info is accepted for parity with browser clients and ignored.
	Info map[string]any `json:"info,omitempty"`
}

type PlayerRequest struct {
	PlayerID int `json:"playerId"`
}

type Empty struct{}

// EventsRequest selects the qualified topics to stream. Empty means all.
type EventsRequest struct {
	Topics []string `json:"topics,omitempty"`
}

type Event struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// GameServer is implemented by Service and registered through ServiceDesc.
type GameServer interface {
	JoinGame(context.Context, *JoinGameRequest) (*models.JoinResult, error)
	LeaveGame(context.Context, *PlayerRequest) (*Empty, error)
	Heartbeat(context.Context, *PlayerRequest) (*Empty, error)
	PlayerMoved(context.Context, *models.MoveArgs) (*Empty, error)
	Events(*EventsRequest, grpc.ServerStream) error
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary adapts a typed GameServer method to a grpc.MethodDesc.
func unary[Req, Resp any](name string, call func(GameServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(GameServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(GameServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func eventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(EventsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(GameServer).Events(in, stream)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GameServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("JoinGame", GameServer.JoinGame),
		unary("LeaveGame", GameServer.LeaveGame),
		unary("Heartbeat", GameServer.Heartbeat),
		unary("PlayerMoved", GameServer.PlayerMoved),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Events",
			Handler:       eventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "walkandtalk/game.json",
}

// Register attaches impl to s.
func Register(s grpc.ServiceRegistrar, impl GameServer) {
	s.RegisterService(&ServiceDesc, impl)
}
