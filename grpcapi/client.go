package grpcapi

import (
	"context"

	"google.golang.org/grpc"

	"github.com/wfunc/walkandtalk/models"
)

// Client calls a Game service over an existing connection.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, fullMethod(method), in, out, grpc.CallContentSubtype(CodecName))
}

func (c *Client) JoinGame(ctx context.Context) (*models.JoinResult, error) {
	out := new(models.JoinResult)
	if err := c.invoke(ctx, "JoinGame", &JoinGameRequest{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) LeaveGame(ctx context.Context, playerID int) error {
	return c.invoke(ctx, "LeaveGame", &PlayerRequest{PlayerID: playerID}, &Empty{})
}

func (c *Client) Heartbeat(ctx context.Context, playerID int) error {
	return c.invoke(ctx, "Heartbeat", &PlayerRequest{PlayerID: playerID}, &Empty{})
}

func (c *Client) PlayerMoved(ctx context.Context, args models.MoveArgs) error {
	return c.invoke(ctx, "PlayerMoved", &args, &Empty{})
}

// EventStream receives events from an open Events call.
type EventStream struct {
	stream grpc.ClientStream
}

func (s *EventStream) Recv() (*Event, error) {
	ev := new(Event)
	if err := s.stream.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Events opens a stream for the given qualified topics, or all topics when
// none are given.
func (c *Client) Events(ctx context.Context, topics ...string) (*EventStream, error) {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("Events"), grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&EventsRequest{Topics: topics}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream: stream}, nil
}
