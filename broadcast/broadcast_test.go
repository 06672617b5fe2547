package broadcast

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type recordingSubscriber struct {
	id     string
	topics map[string]bool
	got    []string
	err    error
}

func (r *recordingSubscriber) GetID() string { return r.id }

func (r *recordingSubscriber) Subscribed(topic string) bool { return r.topics[topic] }

func (r *recordingSubscriber) Deliver(topic string, payload json.RawMessage) error {
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, topic+" "+string(payload))
	return nil
}

func TestHub_PublishToSubscribedOnly(t *testing.T) {
	hub := NewHub()
	a := &recordingSubscriber{id: "a", topics: map[string]bool{"left": true}}
	b := &recordingSubscriber{id: "b", topics: map[string]bool{"joined": true}}
	require.NoError(t, hub.Add(a))
	require.NoError(t, hub.Add(b))

	require.NoError(t, hub.Publish("left", []int{1, 2}))

	assert.Equal(t, []string{"left [1,2]"}, a.got)
	assert.Empty(t, b.got)
}

func TestHub_AddDuplicate(t *testing.T) {
	hub := NewHub()
	require.NoError(t, hub.Add(&recordingSubscriber{id: "a"}))

	err := hub.Add(&recordingSubscriber{id: "a"})
	assert.True(t, errors.Is(err, ErrSubscriberExists))
	assert.Equal(t, 1, hub.Len())
}

func TestHub_Remove(t *testing.T) {
	hub := NewHub()
	a := &recordingSubscriber{id: "a", topics: map[string]bool{"t": true}}
	require.NoError(t, hub.Add(a))
	hub.Remove("a")
	hub.Remove("missing")

	require.NoError(t, hub.Publish("t", 1))
	assert.Empty(t, a.got)
	assert.Equal(t, 0, hub.Len())
}

func TestHub_PublishCollectsFailures(t *testing.T) {
	hub := NewHub()
	ok := &recordingSubscriber{id: "ok", topics: map[string]bool{"t": true}}
	full1 := &recordingSubscriber{id: "full1", topics: map[string]bool{"t": true}, err: ErrBufferFull}
	full2 := &recordingSubscriber{id: "full2", topics: map[string]bool{"t": true}, err: ErrBufferFull}
	for _, s := range []Subscriber{ok, full1, full2} {
		require.NoError(t, hub.Add(s))
	}

	err := hub.Publish("t", "x")
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.True(t, errors.Is(err, ErrBufferFull))
	assert.Equal(t, []string{`t "x"`}, ok.got)
}

func TestHub_PublishEncodeError(t *testing.T) {
	hub := NewHub()
	err := hub.Publish("t", make(chan int))
	assert.Error(t, err)
}
