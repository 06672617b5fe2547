package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/walkandtalk/models"
)

type memoryJournal struct {
	mutex   sync.Mutex
	events  []models.SessionEvent
	block   chan struct{}
	closed  bool
	failing bool
}

func (m *memoryJournal) Record(_ context.Context, e models.SessionEvent) error {
	if m.block != nil {
		<-m.block
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.failing {
		return errors.New("db down")
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memoryJournal) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.closed = true
	return nil
}

func event(id int, kind models.SessionEventKind) models.SessionEvent {
	return models.SessionEvent{PlayerID: id, Kind: kind, OccurredAt: time.Unix(int64(id), 0)}
}

func TestAsyncJournal_DrainsOnClose(t *testing.T) {
	inner := &memoryJournal{}
	j := NewAsyncJournal(inner, 16)

	for i := 1; i <= 5; i++ {
		require.NoError(t, j.Record(context.Background(), event(i, models.EventJoined)))
	}
	require.NoError(t, j.Close())

	assert.Len(t, inner.events, 5)
	assert.Equal(t, 1, inner.events[0].PlayerID)
	assert.True(t, inner.closed)
}

func TestAsyncJournal_FullQueueRejects(t *testing.T) {
	inner := &memoryJournal{block: make(chan struct{})}
	j := NewAsyncJournal(inner, 1)

	// The worker takes the first entry and blocks on it; the second fills
	// the queue.
	require.NoError(t, j.Record(context.Background(), event(1, models.EventJoined)))
	require.Eventually(t, func() bool { return len(j.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, j.Record(context.Background(), event(2, models.EventJoined)))

	err := j.Record(context.Background(), event(3, models.EventJoined))
	assert.True(t, errors.Is(err, ErrJournalFull))

	close(inner.block)
	require.NoError(t, j.Close())
	assert.Len(t, inner.events, 2)
}

func TestAsyncJournal_RecordAfterClose(t *testing.T) {
	j := NewAsyncJournal(Nop{}, 4)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	err := j.Record(context.Background(), event(1, models.EventLeft))
	assert.True(t, errors.Is(err, ErrJournalClosed))
}

func TestAsyncJournal_InnerFailureDoesNotStopWorker(t *testing.T) {
	inner := &memoryJournal{failing: true}
	j := NewAsyncJournal(inner, 4)

	require.NoError(t, j.Record(context.Background(), event(1, models.EventTimedOut)))
	require.NoError(t, j.Record(context.Background(), event(2, models.EventTimedOut)))
	require.NoError(t, j.Close())
	assert.Empty(t, inner.events)
}

func TestDSN(t *testing.T) {
	assert.Equal(t,
		"host=db port=5432 user=u password=p dbname=wt sslmode=disable",
		DSN("db", 5432, "u", "p", "wt"))
}

func TestGormSessionEventRow(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	row := models.NewGormSessionEvent(models.SessionEvent{
		PlayerID: 7, Kind: models.EventJoined, Color: "#abcdef", OccurredAt: at,
	})
	assert.Equal(t, 7, row.PlayerID)
	assert.Equal(t, "joined", row.Kind)
	assert.Equal(t, "#abcdef", row.Color)
	assert.Equal(t, at, row.OccurredAt)
	assert.Equal(t, "session_events", row.TableName())
}
