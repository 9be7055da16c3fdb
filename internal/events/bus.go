package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snarg/meeting-intel/internal/metrics"
)

// Event is one SSE event.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	SubType   string          `json:"sub_type,omitempty"`
	Session   string          `json:"-"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Filter selects events for a subscriber. Types entries are "type" or
// "type:subtype". Events without a session reach every subscriber; session
// events only reach subscribers of the same session.
type Filter struct {
	Types   []string
	Session string
}

// Bus provides pub-sub event distribution for SSE subscribers.
// It maintains a ring buffer for replay on reconnect.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uint64]subscriber
	nextID      uint64
	seq         atomic.Uint64

	ring     []Event
	ringSize int
	ringHead int
	ringMu   sync.RWMutex
}

type subscriber struct {
	ch     chan Event
	filter Filter
}

// NewBus creates an event bus with the given ring buffer size.
func NewBus(ringSize int) *Bus {
	if ringSize < 1 {
		ringSize = 1
	}
	return &Bus{
		subscribers: make(map[uint64]subscriber),
		ring:        make([]Event, ringSize),
		ringSize:    ringSize,
	}
}

// Subscribe registers a new subscriber and returns a channel and cancel function.
func (b *Bus) Subscribe(filter Filter) (<-chan Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, 64)
	b.subscribers[id] = subscriber{ch: ch, filter: filter}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
	return ch, cancel
}

// SubscriberCount returns the number of live subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// ReplaySince returns buffered events after the given event ID.
// An unknown ID replays nothing.
func (b *Bus) ReplaySince(lastEventID string, filter Filter) []Event {
	b.ringMu.RLock()
	defer b.ringMu.RUnlock()

	var out []Event
	found := lastEventID == ""

	for i := 0; i < b.ringSize; i++ {
		idx := (b.ringHead + i) % b.ringSize
		e := b.ring[idx]
		if e.ID == "" {
			continue
		}
		if !found {
			if e.ID == lastEventID {
				found = true
			}
			continue
		}
		if matches(e, filter) {
			out = append(out, e)
		}
	}
	return out
}

// Publish sends an event to all matching subscribers and adds it to the ring buffer.
func (b *Bus) Publish(typ, subType, session string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	now := time.Now()
	seq := b.seq.Add(1)
	event := Event{
		ID:        fmt.Sprintf("%d-%d", now.UnixMilli(), seq),
		Type:      typ,
		SubType:   subType,
		Session:   session,
		Timestamp: now.UTC().Format(time.RFC3339),
		Data:      data,
	}

	b.ringMu.Lock()
	b.ring[b.ringHead] = event
	b.ringHead = (b.ringHead + 1) % b.ringSize
	b.ringMu.Unlock()

	b.mu.RLock()
	for _, sub := range b.subscribers {
		if matches(event, sub.filter) {
			select {
			case sub.ch <- event:
			default:
				// Drop if subscriber is slow
			}
		}
	}
	b.mu.RUnlock()
	metrics.SSEEventsPublishedTotal.Inc()
}

func matches(e Event, f Filter) bool {
	if e.Session != "" && e.Session != f.Session {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		t = strings.TrimSpace(t)
		if base, sub, ok := strings.Cut(t, ":"); ok {
			if base == e.Type && sub == e.SubType {
				return true
			}
		} else if t == e.Type {
			return true
		}
	}
	return false
}
