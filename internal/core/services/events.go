package services

import (
	"sync"

	"streamcast/internal/core/domain"
)

// EventHub fans session event-log entries out to in-process
// subscribers, one subscription per consumer. Slow consumers lose
// entries rather than blocking the publisher.
type EventHub struct {
	mu   sync.RWMutex
	subs map[domain.BroadcastID]map[chan domain.EventLogEntry]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		subs: make(map[domain.BroadcastID]map[chan domain.EventLogEntry]struct{}),
	}
}

// Subscribe registers a consumer for one session's event log. The
// returned cancel function must be called when the consumer is done.
func (h *EventHub) Subscribe(id domain.BroadcastID) (<-chan domain.EventLogEntry, func()) {
	ch := make(chan domain.EventLogEntry, 16)

	h.mu.Lock()
	if h.subs[id] == nil {
		h.subs[id] = make(map[chan domain.EventLogEntry]struct{})
	}
	h.subs[id][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[id]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, id)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an entry to every subscriber of the session.
func (h *EventHub) Publish(id domain.BroadcastID, entry domain.EventLogEntry) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[id] {
		select {
		case ch <- entry:
		default:
		}
	}
}
