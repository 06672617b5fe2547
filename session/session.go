// session/session.go
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/wfunc/walkandtalk/broadcast"
	"github.com/wfunc/walkandtalk/network"
)

// Session is one websocket client. Outbound frames go through a bounded
// queue drained by WritePump, so publishing never waits on the network.
type Session struct {
	ID         string
	Conn       network.Connection
	CreatedAt  time.Time
	LastActive time.Time

	send      chan []byte
	topics    map[string]bool
	playerIDs map[int]bool
	closed    bool
	closeOnce sync.Once
	mutex     sync.RWMutex
}

func NewSession(id string, conn network.Connection, buffer int) *Session {
	now := time.Now()
	if buffer <= 0 {
		buffer = 1
	}
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
		send:       make(chan []byte, buffer),
		topics:     make(map[string]bool),
		playerIDs:  make(map[int]bool),
	}
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Subscribe(topic string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.topics[topic] = true
}

func (s *Session) Unsubscribe(topic string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.topics, topic)
}

func (s *Session) Subscribed(topic string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.topics[topic]
}

// Deliver wraps an event in an envelope and queues it.
func (s *Session) Deliver(topic string, payload json.RawMessage) error {
	data, err := json.Marshal(network.Message{
		Type:    network.MsgTypeEvent,
		Topic:   topic,
		Payload: payload,
	})
	if err != nil {
		return err
	}
	return s.Enqueue(data)
}

// Enqueue queues a frame without blocking.
func (s *Session) Enqueue(data []byte) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.closed {
		return ErrSessionClosed
	}
	select {
	case s.send <- data:
		return nil
	default:
		return broadcast.ErrBufferFull
	}
}

// WritePump writes queued frames until the session is closed or a write
// fails.
func (s *Session) WritePump() {
	for data := range s.send {
		if err := s.Conn.Send(data); err != nil {
			s.Close()
			return
		}
	}
}

// Touch records inbound activity.
func (s *Session) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.LastActive = time.Now()
}

// TrackPlayer remembers a player joined through this session.
func (s *Session) TrackPlayer(id int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.playerIDs[id] = true
}

func (s *Session) ForgetPlayer(id int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.playerIDs, id)
}

// PlayerIDs lists the players still owned by this session.
func (s *Session) PlayerIDs() []int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ids := make([]int, 0, len(s.playerIDs))
	for id := range s.playerIDs {
		ids = append(ids, id)
	}
	return ids
}

// Close stops the write pump and closes the connection. It is safe to call
// more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mutex.Lock()
		s.closed = true
		close(s.send)
		s.mutex.Unlock()
		err = s.Conn.Close()
	})
	return err
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// GetByPlayerID returns the sessions that joined the given player.
func (m *Manager) GetByPlayerID(playerID int) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		session.mutex.RLock()
		owns := session.playerIDs[playerID]
		session.mutex.RUnlock()
		if owns {
			result = append(result, session)
		}
	}
	return result
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mutex.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mutex.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
}
