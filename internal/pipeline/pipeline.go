package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/meeting-intel/internal/audio"
	"github.com/snarg/meeting-intel/internal/diarize"
	"github.com/snarg/meeting-intel/internal/meeting"
	"github.com/snarg/meeting-intel/internal/metrics"
	"github.com/snarg/meeting-intel/internal/transcribe"
)

// Options are the user toggles for one run.
type Options struct {
	EnableDiarization bool
	EnableAnalysis    bool
}

// Pipeline executes exactly one run. Stages run sequentially; each
// provider call blocks until it returns.
type Pipeline struct {
	cfg   *Config
	runID string
	state State
	log   zerolog.Logger
	file  string
}

// New creates a pipeline for one run.
func New(cfg *Config) *Pipeline {
	id := cfg.newID()
	return &Pipeline{
		cfg:   cfg,
		runID: id,
		state: Idle,
		log:   cfg.Log.With().Str("component", "pipeline").Str("run_id", id).Logger(),
	}
}

// RunID returns the run identifier.
func (p *Pipeline) RunID() string { return p.runID }

// State returns the current state.
func (p *Pipeline) State() State { return p.state }

// Run processes src. The audio file is released on every exit path.
// Fatal failures return a *StageError and no record; recoverable ones are
// listed in Record.Warnings.
func (p *Pipeline) Run(ctx context.Context, src *audio.Source, opts Options) (*meeting.Record, error) {
	if p.state != Idle {
		return nil, fmt.Errorf("pipeline %s already ran", p.runID)
	}
	defer src.Release()
	p.file = src.Filename

	rec := &meeting.Record{
		ID:       p.runID,
		Filename: src.Filename,
		Diarization: meeting.Diarization{
			Segments: []meeting.SpeakerSegment{},
		},
		Analysis: meeting.NewStrategicAnalysis(),
	}

	// Transcription
	p.transition(Transcribing, nil)
	tr, err := p.transcribe(ctx, src)
	if err != nil {
		src.Release()
		p.transition(Failed, err)
		metrics.PipelineRunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	rec.Transcription = meeting.TranscriptionResult{
		Text:            tr.Text,
		Language:        tr.Language,
		DurationSeconds: tr.Duration,
		OK:              true,
	}
	rec.TranscriptionSuccess = true

	// Diarization
	switch {
	case !opts.EnableDiarization:
		src.Release()
	case p.cfg.Diarizer == nil:
		src.Release()
		rec.Warnings = append(rec.Warnings, "diarization skipped: ASSEMBLYAI_API_KEY is not configured")
	default:
		p.transition(Diarizing, nil)
		d, serr := p.diarize(ctx, src)
		src.Release()
		if serr != nil {
			rec.Diarization.Error = serr.Message
			rec.Warnings = append(rec.Warnings, serr.Error())
			p.notify(Diarizing, serr)
		} else {
			rec.Diarization = meeting.Diarization{
				Segments:     d.Segments,
				SpeakerCount: d.SpeakerCount,
				OK:           true,
			}
			rec.DiarizationSuccess = true
		}
	}

	// Analysis
	p.transition(Analyzing, nil)
	if opts.EnableAnalysis {
		p.analyze(ctx, rec)
	}

	// Assembly
	p.transition(Assembling, nil)
	rec.ProcessedAt = meeting.NewTimestamp(p.cfg.now())
	rec.MeetingInfo = &meeting.MeetingInfo{
		Title:           src.Filename,
		Language:        rec.Transcription.Language,
		Filename:        src.Filename,
		Date:            rec.ProcessedAt.Format("2006-01-02"),
		DurationSeconds: rec.Transcription.DurationSeconds,
	}

	p.transition(Done, nil)
	metrics.PipelineRunsTotal.WithLabelValues("done").Inc()
	return rec, nil
}

func (p *Pipeline) transcribe(ctx context.Context, src *audio.Source) (*transcribe.Response, *StageError) {
	start := time.Now()
	resp, err := p.cfg.Transcriber.Transcribe(ctx, src.Path, p.cfg.TranscribeOpts)
	metrics.PipelineStageDuration.WithLabelValues(string(StageTranscription)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, p.fail(StageTranscription, TranscriptionFailure, err)
	}
	if resp.Language == "" {
		resp.Language = meeting.UnknownLanguage
	}
	p.log.Debug().
		Str("provider", p.cfg.Transcriber.Name()).
		Str("language", resp.Language).
		Float64("duration_s", resp.Duration).
		Int("chars", len(resp.Text)).
		Msg("transcription complete")
	return resp, nil
}

func (p *Pipeline) diarize(ctx context.Context, src *audio.Source) (*diarize.Result, *StageError) {
	start := time.Now()
	res, err := p.cfg.Diarizer.Diarize(ctx, src.Path)
	metrics.PipelineStageDuration.WithLabelValues(string(StageDiarization)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, p.fail(StageDiarization, DiarizationFailure, err)
	}
	p.log.Debug().Int("segments", len(res.Segments)).Int("speakers", res.SpeakerCount).Msg("diarization complete")
	return res, nil
}

func (p *Pipeline) analyze(ctx context.Context, rec *meeting.Record) {
	if strings.TrimSpace(rec.Transcription.Text) == "" {
		rec.Warnings = append(rec.Warnings, "analysis skipped: transcript is empty")
		return
	}

	start := time.Now()
	out := p.cfg.Analyzer.Analyze(ctx, rec.Transcription.Text, rec.Transcription.Language)
	metrics.PipelineStageDuration.WithLabelValues(string(StageAnalysis)).Observe(time.Since(start).Seconds())

	rec.AnalysisLocale = string(out.Locale)
	rec.Analysis = out.Analysis
	p.log.Debug().
		Str("model", out.Model).
		Str("locale", string(out.Locale)).
		Bool("fallback", out.Fallback).
		Int("items", out.Analysis.Total()).
		Msg("analysis complete")

	switch {
	case out.Err == nil:
		rec.AnalysisSuccess = !out.Analysis.Empty()
	case out.Malformed():
		// Fallback content stands in transparently.
		rec.AnalysisFallback = true
		p.fail(StageAnalysis, AnalysisMalformedOutput, out.Err)
		metrics.AnalysisFallbacksTotal.WithLabelValues(string(out.Locale)).Inc()
	default:
		serr := p.fail(StageAnalysis, AnalysisTransportFailure, out.Err)
		rec.Analysis = meeting.NewStrategicAnalysis()
		rec.Warnings = append(rec.Warnings, serr.Error())
		p.notify(Analyzing, serr)
	}
}

// fail builds the StageError for a stage and records it.
func (p *Pipeline) fail(stage Stage, kind ErrorKind, err error) *StageError {
	serr := stageError(stage, kind, err)
	metrics.PipelineStageFailuresTotal.WithLabelValues(string(stage), string(kind)).Inc()

	ev := p.log.Warn()
	if kind.Fatal() {
		ev = p.log.Error()
	}
	ev.Err(err).Str("stage", string(stage)).Str("kind", string(kind)).Msg("stage failed")
	return serr
}

func (p *Pipeline) transition(to State, serr *StageError) {
	from := p.state
	if !CanTransition(from, to) {
		// Programming error; keep the run going but make it visible.
		p.log.Error().Str("from", string(from)).Str("to", string(to)).Msg("illegal state transition")
	}
	p.state = to
	p.log.Debug().Str("from", string(from)).Str("to", string(to)).Msg("state transition")
	p.emit(from, to, serr)
}

// notify reports a recoverable failure without changing state.
func (p *Pipeline) notify(state State, serr *StageError) {
	p.emit(state, state, serr)
}

func (p *Pipeline) emit(from, to State, serr *StageError) {
	if p.cfg.Observer == nil {
		return
	}
	p.cfg.Observer(Transition{
		RunID:    p.runID,
		Filename: p.file,
		From:     from,
		To:       to,
		Err:      serr,
		At:       p.cfg.now(),
	})
}

// AsStageError extracts a *StageError from err.
func AsStageError(err error) (*StageError, bool) {
	var serr *StageError
	ok := errors.As(err, &serr)
	return serr, ok
}
