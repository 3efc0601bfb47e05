// Package ws delivers session events to the terminal clients of one user over
// websocket or server-sent events.
package ws

import "sync"

// Subscriber is one open stream.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub indexes subscribers by user id. Sends happen outside the lock so a slow
// stream never blocks registration.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{users: make(map[string]map[Subscriber]struct{})}
}

func (h *Hub) Register(userID string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.users[userID]
	if !ok {
		set = make(map[Subscriber]struct{})
		h.users[userID] = set
	}
	set[s] = struct{}{}
}

func (h *Hub) Unregister(userID string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(userID, s)
}

// drop needs h.mu held.
func (h *Hub) drop(userID string, s Subscriber) {
	set, ok := h.users[userID]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.users, userID)
	}
}

// Broadcast sends payload to every stream the user has open. Streams that
// fail are closed and forgotten.
func (h *Hub) Broadcast(userID string, payload []byte) {
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.users[userID]))
	for s := range h.users[userID] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	var failed []Subscriber
	for _, s := range targets {
		if err := s.Send(payload); err != nil {
			failed = append(failed, s)
		}
	}
	if len(failed) == 0 {
		return
	}
	h.mu.Lock()
	for _, s := range failed {
		h.drop(userID, s)
	}
	h.mu.Unlock()
	for _, s := range failed {
		s.Close()
	}
}

// Subscribers reports how many streams a user has open.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}
