package persistence

import (
	"context"
	"errors"
	"sync"

	"github.com/wfunc/walkandtalk/logger"
	"github.com/wfunc/walkandtalk/models"
)

var ErrJournalFull = errors.New("journal queue full")

// AsyncJournal queues entries for a single writer goroutine so callers never
// wait on the database. Entries beyond the queue capacity are rejected.
type AsyncJournal struct {
	inner  Journal
	queue  chan models.SessionEvent
	done   chan struct{}
	mutex  sync.RWMutex
	closed bool
}

func NewAsyncJournal(inner Journal, buffer int) *AsyncJournal {
	if buffer <= 0 {
		buffer = 1
	}
	j := &AsyncJournal{
		inner: inner,
		queue: make(chan models.SessionEvent, buffer),
		done:  make(chan struct{}),
	}
	go j.run()
	return j
}

func (j *AsyncJournal) run() {
	defer close(j.done)
	for event := range j.queue {
		if err := j.inner.Record(context.Background(), event); err != nil {
			logger.Log.Errorf("Failed to journal %s of player %d: %v", event.Kind, event.PlayerID, err)
		}
	}
}

// Record enqueues event without blocking.
func (j *AsyncJournal) Record(_ context.Context, event models.SessionEvent) error {
	j.mutex.RLock()
	defer j.mutex.RUnlock()

	if j.closed {
		return ErrJournalClosed
	}
	select {
	case j.queue <- event:
		return nil
	default:
		return ErrJournalFull
	}
}

// Close stops accepting entries, waits for the queue to drain and closes
// the wrapped journal.
func (j *AsyncJournal) Close() error {
	j.mutex.Lock()
	if j.closed {
		j.mutex.Unlock()
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mutex.Unlock()

	<-j.done
	return j.inner.Close()
}
