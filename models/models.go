// models/models.go
package models

import "time"

// PlayerInfo is the wire shape of a player.
type PlayerInfo struct {
	PlayerID int     `json:"playerId"`
	Color    string  `json:"color"`
	PosX     float64 `json:"posX"`
	PosY     float64 `json:"posY"`
}

// Position is an [x, y] pair.
type Position [2]float64

// Positions maps player id to its current position. JSON object keys are the
// decimal ids.
type Positions map[int]Position

// JoinResult is returned to a joining client so it can draw the field
// without waiting for the next broadcast.
type JoinResult struct {
	Player  PlayerInfo         `json:"player"`
	Players map[int]PlayerInfo `json:"players"`
}

// MoveArgs carries a player_moved call.
type MoveArgs struct {
	PlayerID int     `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// SessionEventKind classifies a journal entry.
type SessionEventKind string

const (
	EventJoined   SessionEventKind = "joined"
	EventLeft     SessionEventKind = "left"
	EventTimedOut SessionEventKind = "timed_out"
)

// SessionEvent is one line of the session journal.
type SessionEvent struct {
	PlayerID   int              `json:"player_id"`
	Kind       SessionEventKind `json:"kind"`
	Color      string           `json:"color,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
