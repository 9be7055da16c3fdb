package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/meeting-intel/internal/events"
	"github.com/snarg/meeting-intel/internal/pipeline"
)

// RunEvent is the payload of a pipeline transition on SSE and MQTT.
type RunEvent struct {
	RunID    string    `json:"run_id"`
	Filename string    `json:"filename"`
	From     string    `json:"from"`
	State    string    `json:"state"`
	Stage    string    `json:"stage,omitempty"`
	Kind     string    `json:"kind,omitempty"`
	Message  string    `json:"message,omitempty"`
	At       time.Time `json:"at"`
}

func newRunEvent(t pipeline.Transition) RunEvent {
	ev := RunEvent{
		RunID:    t.RunID,
		Filename: t.Filename,
		From:     string(t.From),
		State:    string(t.To),
		At:       t.At,
	}
	if t.Err != nil {
		ev.Stage = string(t.Err.Stage)
		ev.Kind = string(t.Err.Kind)
		ev.Message = t.Err.Message
	}
	return ev
}

// RunPublisher forwards run events to an external broker.
type RunPublisher interface {
	Publish(payload any, parts ...string) error
}

// Notifier fans pipeline transitions out to the SSE bus and, when
// configured, the MQTT broker. MQTT messages go through one queue so a
// run's events reach the broker in transition order.
type Notifier struct {
	bus  *events.Bus
	mqtt RunPublisher
	log  zerolog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan runMessage
	done   chan struct{}
}

type runMessage struct {
	subType string
	event   RunEvent
}

const notifyQueueSize = 256

// NewNotifier creates a notifier. bus and mqtt may each be nil.
func NewNotifier(bus *events.Bus, mqtt RunPublisher, log zerolog.Logger) *Notifier {
	n := &Notifier{bus: bus, mqtt: mqtt, log: log.With().Str("component", "notifier").Logger()}
	if mqtt != nil {
		n.queue = make(chan runMessage, notifyQueueSize)
		n.done = make(chan struct{})
		go n.publishLoop()
	}
	return n
}

// Observer returns a pipeline observer that tags events with session.
// Recoverable stage failures are published with sub-type "warning".
func (n *Notifier) Observer(session string) pipeline.Observer {
	return func(t pipeline.Transition) {
		ev := newRunEvent(t)
		subType := ev.State
		if t.From == t.To && t.Err != nil {
			subType = "warning"
		}

		if n.bus != nil {
			n.bus.Publish("run", subType, session, ev)
		}
		if n.mqtt != nil {
			n.enqueue(runMessage{subType: subType, event: ev})
		}
	}
}

func (n *Notifier) enqueue(m runMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		n.log.Warn().Str("run_id", m.event.RunID).Str("state", m.subType).Msg("notifier closed, run event not published")
		return
	}
	select {
	case n.queue <- m:
	default:
		n.log.Warn().Str("run_id", m.event.RunID).Str("state", m.subType).Msg("mqtt queue full, run event dropped")
	}
}

func (n *Notifier) publishLoop() {
	defer close(n.done)
	for m := range n.queue {
		if err := n.mqtt.Publish(m.event, "runs", m.subType); err != nil {
			n.log.Warn().Err(err).Str("run_id", m.event.RunID).Msg("run event not published")
		}
	}
}

// Close stops accepting events and waits until queued MQTT messages are
// sent or ctx is done.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if n.closed || n.queue == nil {
		n.closed = true
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		n.log.Warn().Int("pending", len(n.queue)).Msg("notifier closed before queue drained")
		return ctx.Err()
	}
}
