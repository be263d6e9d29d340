package pipeline

import (
	"log"
	"sync"

	"github.com/pcheng/callscribe/internal/model/call"
)

const subscriberBuffer = 256

// Subscriber receives the events of one session, published after the
// subscription began. There is no replay of history.
type Subscriber struct {
	sessionID string
	events    chan call.Event
}

// Events returns the subscriber's event channel. It is closed on
// unsubscribe.
func (s *Subscriber) Events() <-chan call.Event {
	return s.events
}

// SessionID returns the session this subscriber listens to.
func (s *Subscriber) SessionID() string {
	return s.sessionID
}

// Hub is the session-scoped broadcast channel between jobs and connected
// clients. Publishing is fire-and-forget: a subscriber that cannot keep up
// loses events rather than blocking producers, and one that disconnects
// simply stops receiving.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscriber]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers a new listener for the session's events.
func (h *Hub) Subscribe(sessionID string) *Subscriber {
	sub := &Subscriber{
		sessionID: sessionID,
		events:    make(chan call.Event, subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.subscribers[sessionID]
	if !ok {
		group = make(map[*Subscriber]struct{})
		h.subscribers[sessionID] = group
	}
	group[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the listener and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.subscribers[sub.sessionID]
	if !ok {
		return
	}
	if _, member := group[sub]; !member {
		return
	}
	delete(group, sub)
	if len(group) == 0 {
		delete(h.subscribers, sub.sessionID)
	}
	close(sub.events)
}

// Publish delivers an event to every current subscriber of the session.
func (h *Hub) Publish(sessionID string, ev call.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers[sessionID] {
		select {
		case sub.events <- ev:
		default:
			log.Printf("[hub] dropping event for slow subscriber session=%s", sessionID)
		}
	}
}

// SubscriberCount reports the number of active listeners for a session.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[sessionID])
}
