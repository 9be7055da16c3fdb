package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/snarg/meeting-intel/internal/audio"
	"github.com/snarg/meeting-intel/internal/pipeline"
	"github.com/snarg/meeting-intel/internal/session"
)

// RunConfigBuilder produces a fresh per-run pipeline config.
type RunConfigBuilder interface {
	Build(observer pipeline.Observer) (*pipeline.Config, error)
}

// ProcessHandler runs the pipeline on an uploaded recording and stores the
// result as the caller's session record.
type ProcessHandler struct {
	builder  RunConfigBuilder
	sessions *session.Store
	notifier *Notifier
	sem      chan struct{}
	tempDir  string
	maxBytes int64
	log      zerolog.Logger
}

func NewProcessHandler(builder RunConfigBuilder, sessions *session.Store, notifier *Notifier, maxRuns int, tempDir string, maxUploadMB int64, log zerolog.Logger) *ProcessHandler {
	if maxRuns < 1 {
		maxRuns = 1
	}
	return &ProcessHandler{
		builder:  builder,
		sessions: sessions,
		notifier: notifier,
		sem:      make(chan struct{}, maxRuns),
		tempDir:  tempDir,
		maxBytes: maxUploadMB << 20,
		log:      log.With().Str("handler", "process").Logger(),
	}
}

// RunsInFlight returns the number of runs currently executing.
func (h *ProcessHandler) RunsInFlight() int { return len(h.sem) }

func (h *ProcessHandler) Routes(r chi.Router) {
	r.Post("/process", h.Process)
}

// Process handles POST /api/v1/process.
// Form fields: audio (file), enable_diarization (default false),
// enable_analysis (default true).
func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		WriteErrorWithCode(w, http.StatusConflict, ErrRunInProgress, "a meeting is already being processed, try again when it finishes")
		return
	}

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			WriteErrorWithCode(w, http.StatusRequestEntityTooLarge, ErrInvalidBody,
				fmt.Sprintf("upload exceeds %d MB", h.maxBytes>>20))
			return
		}
		WriteErrorWithCode(w, http.StatusBadRequest, ErrInvalidBody, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrMissingAudio, `missing audio file in form field "audio"`)
		return
	}
	defer file.Close()

	if err := audio.Validate(header.Filename); err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrUnsupportedAudio, err.Error())
		return
	}

	opts := pipeline.Options{
		EnableDiarization: FormBool(r, "enable_diarization", false),
		EnableAnalysis:    FormBool(r, "enable_analysis", true),
	}
	sid := session.ID(w, r)

	var observer pipeline.Observer
	if h.notifier != nil {
		observer = h.notifier.Observer(sid)
	}
	rc, err := h.builder.Build(observer)
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	src, err := audio.Spool(h.tempDir, header.Filename, file)
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrInvalidBody, "could not read upload: "+err.Error())
		return
	}

	h.log.Info().
		Str("filename", src.Filename).
		Int64("size", src.Size).
		Bool("diarization", opts.EnableDiarization).
		Bool("analysis", opts.EnableAnalysis).
		Msg("processing upload")

	// Provider calls are bounded by their stage timeouts; a client that
	// goes away does not abort a run that has already started.
	rec, err := pipeline.New(rc).Run(context.WithoutCancel(r.Context()), src, opts)
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	h.sessions.Put(sid, rec)
	WriteJSON(w, http.StatusOK, rec)
}

func (h *ProcessHandler) writeRunError(w http.ResponseWriter, err error) {
	serr, ok := pipeline.AsStageError(err)
	if !ok {
		h.log.Error().Err(err).Msg("run failed")
		WriteErrorWithCode(w, http.StatusInternalServerError, ErrInternal, err.Error())
		return
	}
	switch serr.Kind {
	case pipeline.CredentialMissing:
		WriteErrorDetail(w, http.StatusPreconditionFailed, ErrCredentialMissing, serr.Error(), string(serr.Stage))
	case pipeline.TranscriptionFailure:
		WriteErrorDetail(w, http.StatusBadGateway, ErrTranscription, serr.Error(), string(serr.Stage))
	default:
		WriteErrorDetail(w, http.StatusInternalServerError, ErrInternal, serr.Error(), string(serr.Stage))
	}
}
