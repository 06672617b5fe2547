package state

import (
	"fmt"
	"time"

	"github.com/wfunc/walkandtalk/models"
)

// Player is a participant tracked by GameState. It is only touched while the
// owning GameState holds its lock; callers outside the package see copies
// as models.PlayerInfo.
type Player struct {
	ID           int
	Color        uint32
	X, Y         float64
	LastActivity time.Time
	Announced    bool
}

// touch records activity at now.
func (p *Player) touch(now time.Time) {
	p.LastActivity = now
}

// Info returns the wire view of the player.
func (p *Player) Info() models.PlayerInfo {
	return models.PlayerInfo{
		PlayerID: p.ID,
		Color:    FormatColor(p.Color),
		PosX:     p.X,
		PosY:     p.Y,
	}
}

// FormatColor renders the low 24 bits of rgb as "#rrggbb".
func FormatColor(rgb uint32) string {
	return fmt.Sprintf("#%06x", rgb&0xffffff)
}
