// state/game_state.go
package state

import (
	"errors"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/wfunc/walkandtalk/models"
	"github.com/wfunc/walkandtalk/timer"
)

// ErrNegativeTimeout is returned by SweepExpired for a timeout below zero.
var ErrNegativeTimeout = errors.New("negative liveness timeout")

// ColorSource yields a 24-bit RGB value for each new player.
type ColorSource func() uint32

// RandomColor picks a uniformly random 24-bit color.
func RandomColor() uint32 {
	return rand.Uint32() & 0xffffff
}

type Option func(*GameState)

// WithClock sets the time source used for liveness.
func WithClock(c timer.Clock) Option {
	return func(g *GameState) { g.clock = c }
}

// WithColorSource replaces the random color generator.
func WithColorSource(src ColorSource) Option {
	return func(g *GameState) { g.colors = src }
}

// GameState owns every player of the session. The players map, the id
// counter and the dirty flag are guarded together by one mutex, so each
// method observes a single point-in-time view.
type GameState struct {
	mutex          sync.Mutex
	nextID         int
	players        map[int]*Player
	positionsDirty bool

	clock  timer.Clock
	colors ColorSource
}

func NewGameState(opts ...Option) *GameState {
	g := &GameState{
		players: make(map[int]*Player),
		clock:   timer.Real(),
		colors:  RandomColor,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddPlayer creates a player at (0,0) with a fresh id and color.
func (g *GameState) AddPlayer() models.PlayerInfo {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.addLocked().Info()
}

func (g *GameState) addLocked() *Player {
	g.nextID++
	id := g.nextID
	if _, exists := g.players[id]; exists {
		// The counter only grows, so this means the state was corrupted.
		panic(fmt.Sprintf("state: player id %d assigned twice", id))
	}

	p := &Player{
		ID:    id,
		Color: g.colors() & 0xffffff,
	}
	p.touch(g.clock.Now())
	g.players[id] = p
	return p
}

// RemovePlayer deletes the player and reports whether it existed.
func (g *GameState) RemovePlayer(id int) bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, exists := g.players[id]; !exists {
		return false
	}
	delete(g.players, id)
	return true
}

func (g *GameState) GetPlayer(id int) (models.PlayerInfo, bool) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	p, exists := g.players[id]
	if !exists {
		return models.PlayerInfo{}, false
	}
	return p.Info(), true
}

// Heartbeat refreshes the player's liveness. It returns false for an
// unknown id.
func (g *GameState) Heartbeat(id int) bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	p, exists := g.players[id]
	if !exists {
		return false
	}
	p.touch(g.clock.Now())
	return true
}

// Move sets the player's position and marks positions dirty. An unknown id
// leaves the state untouched and returns false.
func (g *GameState) Move(id int, x, y float64) bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	p, exists := g.players[id]
	if !exists {
		return false
	}
	p.X, p.Y = x, y
	p.touch(g.clock.Now())
	g.positionsDirty = true
	return true
}

// SweepExpired removes every player idle for at least timeout and returns
// their ids in ascending order.
func (g *GameState) SweepExpired(timeout time.Duration) ([]int, error) {
	if timeout < 0 {
		return nil, fmt.Errorf("sweep with timeout %v: %w", timeout, ErrNegativeTimeout)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	removed := expired(g.players, g.clock.Now(), timeout)
	for _, id := range removed {
		delete(g.players, id)
	}
	return removed, nil
}

// DrainNewPlayers returns players not announced yet, in creation order, and
// marks them announced. A player is returned by at most one call.
func (g *GameState) DrainNewPlayers() []models.PlayerInfo {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	var joined []models.PlayerInfo
	for _, id := range g.sortedIDsLocked() {
		p := g.players[id]
		if p.Announced {
			continue
		}
		p.Announced = true
		joined = append(joined, p.Info())
	}
	return joined
}

// SnapshotPositions returns every player's position. With reset it also
// clears the dirty flag.
func (g *GameState) SnapshotPositions(reset bool) models.Positions {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if reset {
		g.positionsDirty = false
	}
	positions := make(models.Positions, len(g.players))
	for id, p := range g.players {
		positions[id] = models.Position{p.X, p.Y}
	}
	return positions
}

// PositionsDirty reports whether a move happened since the last reset.
func (g *GameState) PositionsDirty() bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.positionsDirty
}

func (g *GameState) AllPlayersInfo() map[int]models.PlayerInfo {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.infosLocked()
}

func (g *GameState) infosLocked() map[int]models.PlayerInfo {
	infos := make(map[int]models.PlayerInfo, len(g.players))
	for id, p := range g.players {
		infos[id] = p.Info()
	}
	return infos
}

// Join adds a player and returns it along with every current player,
// itself included, taken under the same lock.
func (g *GameState) Join() models.JoinResult {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	p := g.addLocked()
	return models.JoinResult{Player: p.Info(), Players: g.infosLocked()}
}

func (g *GameState) Len() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return len(g.players)
}

func (g *GameState) sortedIDsLocked() []int {
	return slices.Sorted(maps.Keys(g.players))
}
