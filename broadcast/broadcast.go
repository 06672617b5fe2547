// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

var (
	ErrSubscriberExists = errors.New("subscriber already registered")
	ErrBufferFull       = errors.New("subscriber send buffer full")
)

// Publisher emits an event on a topic. Implementations must not block on
// slow receivers.
type Publisher interface {
	Publish(topic string, payload interface{}) error
}

// Subscriber receives encoded events. Deliver must return promptly; a
// subscriber that cannot keep up returns ErrBufferFull.
type Subscriber interface {
	GetID() string
	Subscribed(topic string) bool
	Deliver(topic string, payload json.RawMessage) error
}

// Hub fans an event out to every subscriber of its topic. The payload is
// encoded once per Publish.
type Hub struct {
	subscribers map[string]Subscriber
	mutex       sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]Subscriber),
	}
}

func (h *Hub) Add(s Subscriber) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, exists := h.subscribers[s.GetID()]; exists {
		return fmt.Errorf("%w: %s", ErrSubscriberExists, s.GetID())
	}
	h.subscribers[s.GetID()] = s
	return nil
}

func (h *Hub) Remove(id string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.subscribers, id)
}

func (h *Hub) Len() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.subscribers)
}

// Publish encodes payload and hands it to each interested subscriber. Every
// subscriber is tried; the returned error combines the individual failures.
func (h *Hub) Publish(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}

	// Copy under the read lock so Deliver runs without holding it.
	h.mutex.RLock()
	targets := make([]Subscriber, 0, len(h.subscribers))
	for _, s := range h.subscribers {
		if s.Subscribed(topic) {
			targets = append(targets, s)
		}
	}
	h.mutex.RUnlock()

	var errs error
	for _, s := range targets {
		if err := s.Deliver(topic, data); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("deliver %s to %s: %w", topic, s.GetID(), err))
		}
	}
	return errs
}
