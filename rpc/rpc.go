package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"sync"

	"github.com/wfunc/walkandtalk/logger"
	"github.com/wfunc/walkandtalk/models"
	"github.com/wfunc/walkandtalk/services"
)

// ServiceName is the net/rpc name GameService is registered under.
const ServiceName = "Game"

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
	conns    map[net.Conn]struct{}
	mutex    sync.Mutex
}

// NewServer listens on addr and registers the game service.
func NewServer(addr string, svc *services.GameService) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return newServer(listener, svc)
}

func newServer(listener net.Listener, svc *services.GameService) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(ServiceName, NewGameService(svc)); err != nil {
		listener.Close()
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      srv,
		conns:    make(map[net.Conn]struct{}),
	}, nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return nil
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		s.track(conn, true)
		go func() {
			defer s.track(conn, false)
			s.rpc.ServeConn(conn)
		}()
	}
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

// Stop closes the listener and every open connection.
func (s *Server) Stop() {
	logger.Log.Info("Stopping RPC server.")
	s.listener.Close()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

// GameService exposes the game procedures with net/rpc signatures.
type GameService struct {
	svc *services.GameService
}

func NewGameService(svc *services.GameService) *GameService {
	return &GameService{svc: svc}
}

// JoinGameArgs mirrors the info object browser clients send. The server
// ignores it.
type JoinGameArgs struct {
	Client string
}

type PlayerArgs struct {
	PlayerID int
}

type MoveArgs struct {
	PlayerID int
	X, Y     float64
}

// Ack is the reply of procedures without a result. gob refuses structs
// without exported fields.
type Ack struct {
	OK bool
}

func (gs *GameService) JoinGame(args *JoinGameArgs, reply *models.JoinResult) error {
	*reply = gs.svc.Join(context.Background())
	return nil
}

func (gs *GameService) LeaveGame(args *PlayerArgs, reply *Ack) error {
	gs.svc.Leave(context.Background(), args.PlayerID)
	reply.OK = true
	return nil
}

func (gs *GameService) Heartbeat(args *PlayerArgs, reply *Ack) error {
	gs.svc.Heartbeat(context.Background(), args.PlayerID)
	reply.OK = true
	return nil
}

func (gs *GameService) PlayerMoved(args *MoveArgs, reply *Ack) error {
	err := gs.svc.Move(context.Background(), models.MoveArgs{
		PlayerID: args.PlayerID,
		X:        args.X,
		Y:        args.Y,
	})
	if err != nil {
		return err
	}
	reply.OK = true
	return nil
}
