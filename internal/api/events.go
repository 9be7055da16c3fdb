package api

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/snarg/meeting-intel/internal/events"
	"github.com/snarg/meeting-intel/internal/session"
)

type EventsHandler struct {
	bus       *events.Bus
	keepalive time.Duration
	done      chan struct{}
	closeOnce sync.Once
}

func NewEventsHandler(bus *events.Bus) *EventsHandler {
	return &EventsHandler{bus: bus, keepalive: 15 * time.Second, done: make(chan struct{})}
}

// Close ends every open stream. http.Server.Shutdown does not cancel
// long-lived requests, so the server calls this first.
func (h *EventsHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Routes registers event routes on the given router.
func (h *EventsHandler) Routes(r chi.Router) {
	r.Get("/events", h.StreamEvents)
}

func writeEvent(w http.ResponseWriter, e events.Event) {
	typ := e.Type
	if e.SubType != "" {
		typ += ":" + e.SubType
	}
	fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, typ, e.Data)
}

// StreamEvents opens an SSE connection carrying the run events of the
// caller's session. ?types= filters by "type" or "type:subtype".
func (h *EventsHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		WriteError(w, http.StatusServiceUnavailable, "event streaming not available")
		return
	}

	filter := events.Filter{Session: session.ID(w, r)}
	if v, ok := QueryString(r, "types"); ok {
		filter.Types = strings.Split(v, ",")
	}

	// Subscribed before the headers are flushed and before replay.
	ch, cancel := h.bus.Subscribe(filter)
	defer cancel()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	replayed := map[string]bool{}
	if last := r.Header.Get("Last-Event-ID"); last != "" {
		for _, e := range h.bus.ReplaySince(last, filter) {
			replayed[e.ID] = true
			writeEvent(w, e)
		}
		rc.Flush()
	}

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	log := hlog.FromRequest(r)
	log.Debug().Msg("SSE client connected")

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Msg("SSE client disconnected")
			return
		case <-h.done:
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if replayed[e.ID] {
				continue
			}
			writeEvent(w, e)
			rc.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			rc.Flush()
		}
	}
}
