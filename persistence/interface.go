// persistence/interface.go
package persistence

import (
	"context"
	"errors"

	"github.com/wfunc/walkandtalk/models"
)

var ErrJournalClosed = errors.New("journal closed")

// Journal 会话日志接口. Entries are appended and never read back by the
// game; the game state itself is not restored from them.
type Journal interface {
	Record(ctx context.Context, event models.SessionEvent) error
	Close() error
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, models.SessionEvent) error { return nil }
func (Nop) Close() error                                       { return nil }
