package services

import (
	"sync"
	"time"
)

type EventKind string

const (
	EventBalanceChanged    EventKind = "balance_changed"
	EventCampaignCompleted EventKind = "campaign_completed"
	EventSignedOut         EventKind = "signed_out"
)

// Event is a per-user notification fanned out to that user's open streams.
type Event struct {
	Kind       EventKind `json:"kind"`
	UserID     string    `json:"user_id"`
	Balance    int64     `json:"balance,omitempty"`
	CampaignID string    `json:"campaign_id,omitempty"`
	At         time.Time `json:"at"`
}

// EventHub delivers events to subscribers keyed by user id. Publishing never
// blocks: a subscriber whose buffer is full misses the event.
type EventHub struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan Event
	nextID int
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[string]map[int]chan Event)}
}

// Subscribe returns a channel of the user's events and a cancel func that
// closes it.
func (h *EventHub) Subscribe(userID string, buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]chan Event)
	}
	h.subs[userID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], id)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *EventHub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[e.UserID] {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribers reports how many streams are open for userID.
func (h *EventHub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
