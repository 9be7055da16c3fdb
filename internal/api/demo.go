package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/snarg/meeting-intel/internal/demo"
	"github.com/snarg/meeting-intel/internal/present"
)

// DemoHandler serves the pre-computed demo corpus.
type DemoHandler struct {
	corpus *demo.Corpus
	log    zerolog.Logger
}

func NewDemoHandler(corpus *demo.Corpus, log zerolog.Logger) *DemoHandler {
	return &DemoHandler{corpus: corpus, log: log.With().Str("handler", "demo").Logger()}
}

func (h *DemoHandler) Routes(r chi.Router) {
	r.Route("/demo", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/overview", h.Overview)
		r.Post("/reload", h.Reload)
		r.Get("/export.xlsx", h.Export)
		r.Get("/meetings/{name}", h.Meeting)
	})
}

type demoMeeting struct {
	Name string              `json:"name"`
	View present.MeetingView `json:"view"`
}

type demoResponse struct {
	Source   string           `json:"source"`
	Location string           `json:"location"`
	Overview present.Overview `json:"overview"`
	Meetings []demoMeeting    `json:"meetings"`
	Errors   []demo.LoadError `json:"errors"`
}

func (h *DemoHandler) snapshot(w http.ResponseWriter, r *http.Request) (*demo.Snapshot, bool) {
	if h.corpus == nil {
		WriteErrorWithCode(w, http.StatusServiceUnavailable, ErrDemoUnavailable, "demo corpus not configured")
		return nil, false
	}
	snap, err := h.corpus.Snapshot(r.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("demo corpus unavailable")
		WriteErrorDetail(w, http.StatusServiceUnavailable, ErrDemoUnavailable, "demo corpus unavailable", err.Error())
		return nil, false
	}
	return snap, true
}

func respondSnapshot(w http.ResponseWriter, status int, snap *demo.Snapshot) {
	resp := demoResponse{
		Source:   snap.Source,
		Location: snap.Location,
		Overview: present.Summarize(snap.Records()),
		Meetings: make([]demoMeeting, 0, len(snap.Entries)),
		Errors:   snap.Errors,
	}
	if resp.Errors == nil {
		resp.Errors = []demo.LoadError{}
	}
	for _, e := range snap.Entries {
		resp.Meetings = append(resp.Meetings, demoMeeting{Name: e.Name, View: present.View(e.Record)})
	}
	WriteJSON(w, status, resp)
}

// List handles GET /api/v1/demo.
func (h *DemoHandler) List(w http.ResponseWriter, r *http.Request) {
	if snap, ok := h.snapshot(w, r); ok {
		respondSnapshot(w, http.StatusOK, snap)
	}
}

// Overview handles GET /api/v1/demo/overview.
func (h *DemoHandler) Overview(w http.ResponseWriter, r *http.Request) {
	if snap, ok := h.snapshot(w, r); ok {
		WriteJSON(w, http.StatusOK, present.Summarize(snap.Records()))
	}
}

// Meeting handles GET /api/v1/demo/meetings/{name}.
func (h *DemoHandler) Meeting(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	for _, e := range snap.Entries {
		if e.Name == name {
			WriteJSON(w, http.StatusOK, demoMeeting{Name: e.Name, View: present.View(e.Record)})
			return
		}
	}
	WriteErrorWithCode(w, http.StatusNotFound, ErrNoRecord, "no demo meeting named "+name)
}

// Reload handles POST /api/v1/demo/reload.
func (h *DemoHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.corpus == nil {
		WriteErrorWithCode(w, http.StatusServiceUnavailable, ErrDemoUnavailable, "demo corpus not configured")
		return
	}
	snap, err := h.corpus.Reload(r.Context())
	if err != nil {
		WriteErrorDetail(w, http.StatusServiceUnavailable, ErrDemoUnavailable, "demo corpus reload failed", err.Error())
		return
	}
	respondSnapshot(w, http.StatusOK, snap)
}

// Export handles GET /api/v1/demo/export.xlsx.
func (h *DemoHandler) Export(w http.ResponseWriter, r *http.Request) {
	if snap, ok := h.snapshot(w, r); ok {
		writeWorkbook(w, "demo-meetings.xlsx", snap.Records(), h.log)
	}
}
