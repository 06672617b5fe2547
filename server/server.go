package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wfunc/walkandtalk/broadcast"
	"github.com/wfunc/walkandtalk/logger"
	"github.com/wfunc/walkandtalk/network"
	"github.com/wfunc/walkandtalk/services"
	"github.com/wfunc/walkandtalk/session"
)

// GameServer accepts websocket clients, answers their calls through the
// game service and registers them with the hub for events.
type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	hub            *broadcast.Hub
	service        *services.GameService
	names          network.Names
	sendBuffer     int
	readTimeout    time.Duration
}

type NewGameServerOptions struct {
	Address    string
	Hub        *broadcast.Hub
	Service    *services.GameService
	Names      network.Names
	SendBuffer int
	// ReadTimeout closes a connection that sends nothing for twice this
	// long. Zero disables it.
	ReadTimeout time.Duration
}

func NewGameServer(opts NewGameServerOptions) *GameServer {
	return &GameServer{
		addr:           opts.Address,
		sessionManager: session.NewManager(),
		hub:            opts.Hub,
		service:        opts.Service,
		names:          opts.Names,
		sendBuffer:     opts.SendBuffer,
		readTimeout:    opts.ReadTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
}

func (s *GameServer) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet, http.MethodHead)
	return router
}

// Serve listens on the configured address until ctx is cancelled, then
// closes every websocket session.
func (s *GameServer) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.sessionManager.CloseAll()
	}()

	logger.Log.Infof("Game server listening on %s", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *GameServer) Sessions() *session.Manager {
	return s.sessionManager
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(r.Context(), network.NewWSConnection(conn))
}

func (s *GameServer) handleConnection(ctx context.Context, conn network.Connection) {
	sess := session.NewSession(uuid.New().String(), conn, s.sendBuffer)
	if s.readTimeout > 0 {
		conn.SetHeartbeat(s.readTimeout)
	}
	s.sessionManager.Add(sess)
	if err := s.hub.Add(sess); err != nil {
		logger.Log.Errorf("Register session %s: %v", sess.GetID(), err)
		s.sessionManager.Remove(sess.GetID())
		sess.Close()
		return
	}
	go sess.WritePump()

	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		s.hub.Remove(sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		// A client that goes away without leave_game takes its players with it.
		for _, id := range sess.PlayerIDs() {
			s.service.Leave(context.WithoutCancel(ctx), id)
		}
		sess.Close()
	}()

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sess.Touch()
		s.handleMessage(ctx, sess, data)
	}
}
