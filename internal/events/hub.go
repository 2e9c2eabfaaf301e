package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

const subscriberBuffer = 64

// Subscriber receives encoded events for one project.
type Subscriber struct {
	ProjectID uint
	C         chan []byte
}

// Hub fans events out to websocket subscribers of the affected project.
// A subscriber whose buffer is full misses the event rather than blocking publishers.
type Hub struct {
	mu   sync.RWMutex
	subs map[uint]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint]map[*Subscriber]struct{})}
}

func (h *Hub) Subscribe(projectID uint) *Subscriber {
	s := &Subscriber{ProjectID: projectID, C: make(chan []byte, subscriberBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[projectID] == nil {
		h.subs[projectID] = make(map[*Subscriber]struct{})
	}
	h.subs[projectID][s] = struct{}{}
	return s
}

// Unsubscribe removes s and closes its channel. It is safe to call twice.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[s.ProjectID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	close(s.C)
	if len(set) == 0 {
		delete(h.subs, s.ProjectID)
	}
}

func (h *Hub) Subscribers(projectID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[projectID])
}

func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.subs[ev.ProjectID]
	if len(set) == 0 {
		return nil
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	for s := range set {
		select {
		case s.C <- body:
		default:
			slog.Warn("activity subscriber lagging, event dropped", "project_id", ev.ProjectID, "type", ev.Type)
		}
	}
	return nil
}
