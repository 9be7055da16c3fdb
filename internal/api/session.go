package api

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/snarg/meeting-intel/internal/demo"
	"github.com/snarg/meeting-intel/internal/meeting"
	"github.com/snarg/meeting-intel/internal/present"
	"github.com/snarg/meeting-intel/internal/session"
)

// SessionHandler serves the record produced by the caller's last run.
type SessionHandler struct {
	sessions *session.Store
	corpus   *demo.Corpus
	log      zerolog.Logger
}

// NewSessionHandler creates the handler. corpus may be nil, which disables
// publishing.
func NewSessionHandler(sessions *session.Store, corpus *demo.Corpus, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		corpus:   corpus,
		log:      log.With().Str("handler", "session").Logger(),
	}
}

func (h *SessionHandler) Routes(r chi.Router) {
	r.Route("/session/record", func(r chi.Router) {
		r.Get("/", h.Record)
		r.Delete("/", h.Clear)
		r.Get("/view", h.View)
		r.Get("/export.xlsx", h.Export)
		r.Post("/publish", h.Publish)
	})
}

func (h *SessionHandler) current(w http.ResponseWriter, r *http.Request) (*meeting.Record, bool) {
	rec, ok := h.sessions.Get(session.ID(w, r))
	if !ok {
		WriteErrorWithCode(w, http.StatusNotFound, ErrNoRecord, "no meeting has been processed in this session")
		return nil, false
	}
	return rec, true
}

// Record handles GET /api/v1/session/record.
func (h *SessionHandler) Record(w http.ResponseWriter, r *http.Request) {
	if rec, ok := h.current(w, r); ok {
		WriteJSON(w, http.StatusOK, rec)
	}
}

// Clear handles DELETE /api/v1/session/record.
func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Clear(session.ID(w, r)) {
		WriteErrorWithCode(w, http.StatusNotFound, ErrNoRecord, "no meeting has been processed in this session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// View handles GET /api/v1/session/record/view.
func (h *SessionHandler) View(w http.ResponseWriter, r *http.Request) {
	if rec, ok := h.current(w, r); ok {
		WriteJSON(w, http.StatusOK, present.View(rec))
	}
}

// Export handles GET /api/v1/session/record/export.xlsx.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.current(w, r)
	if !ok {
		return
	}
	writeWorkbook(w, exportName(rec.Filename), []*meeting.Record{rec}, h.log)
}

// Publish handles POST /api/v1/session/record/publish: the record is saved
// to the demo corpus in the legacy schema.
func (h *SessionHandler) Publish(w http.ResponseWriter, r *http.Request) {
	if h.corpus == nil {
		WriteErrorWithCode(w, http.StatusServiceUnavailable, ErrDemoUnavailable, "demo corpus not configured")
		return
	}
	rec, ok := h.current(w, r)
	if !ok {
		return
	}
	name, err := h.corpus.Publish(r.Context(), rec)
	if err != nil {
		h.log.Error().Err(err).Str("file", name).Msg("publish to demo corpus failed")
		WriteErrorDetail(w, http.StatusInternalServerError, ErrInternal, "publish failed", err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]string{"name": name})
}

func exportName(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." {
		base = "meeting"
	}
	return base + ".xlsx"
}

func writeWorkbook(w http.ResponseWriter, filename string, records []*meeting.Record, log zerolog.Logger) {
	var buf bytes.Buffer
	if err := present.WriteXLSX(&buf, records); err != nil {
		log.Error().Err(err).Msg("xlsx export failed")
		WriteErrorWithCode(w, http.StatusInternalServerError, ErrInternal, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
