package network

import "encoding/json"

// Procedure and topic names, qualified with the configured prefix on the
// wire.
const (
	ProcJoinGame    = "join_game"
	ProcLeaveGame   = "leave_game"
	ProcHeartbeat   = "heartbeat"
	ProcPlayerMoved = "player_moved"

	TopicPlayersJoined   = "players_joined"
	TopicPlayersLeft     = "players_left"
	TopicPlayerPositions = "player_positions"
)

// Message types of the websocket envelope.
const (
	MsgTypeCall        = "call"
	MsgTypeResult      = "result"
	MsgTypeError       = "error"
	MsgTypeSubscribe   = "subscribe"
	MsgTypeUnsubscribe = "unsubscribe"
	MsgTypeEvent       = "event"
)

// Names maps bare procedure and topic names to their qualified form.
type Names struct {
	Prefix string
}

func (n Names) Qualify(name string) string {
	if n.Prefix == "" {
		return name
	}
	return n.Prefix + "." + name
}

// Bare strips the prefix from a qualified name. ok is false when name does
// not carry the prefix.
func (n Names) Bare(name string) (bare string, ok bool) {
	if n.Prefix == "" {
		return name, true
	}
	p := n.Prefix + "."
	if len(name) <= len(p) || name[:len(p)] != p {
		return "", false
	}
	return name[len(p):], true
}

// Message is the JSON envelope exchanged over the websocket.
type Message struct {
	Type      string            `json:"type"`
	ID        uint64            `json:"id,omitempty"`
	Procedure string            `json:"procedure,omitempty"`
	Args      []json.RawMessage `json:"args,omitempty"`
	Topic     string            `json:"topic,omitempty"`
	Result    json.RawMessage   `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
}
