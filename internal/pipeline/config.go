package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/snarg/meeting-intel/internal/analysis"
	"github.com/snarg/meeting-intel/internal/config"
	"github.com/snarg/meeting-intel/internal/credentials"
	"github.com/snarg/meeting-intel/internal/diarize"
	"github.com/snarg/meeting-intel/internal/transcribe"
)

// Transcriber is the transcription stage's provider.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts transcribe.TranscribeOpts) (*transcribe.Response, error)
	Name() string
}

// Diarizer is the diarization stage's provider.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) (*diarize.Result, error)
	Name() string
}

// Analyzer is the strategic analysis stage.
type Analyzer interface {
	Analyze(ctx context.Context, transcript, lang string) analysis.Outcome
}

// Config carries everything one run needs. It is built fresh for each run
// and never shared between concurrent runs.
type Config struct {
	Transcriber    Transcriber
	TranscribeOpts transcribe.TranscribeOpts
	Diarizer       Diarizer // nil when the diarization key is missing
	Analyzer       Analyzer

	Log      zerolog.Logger
	Observer Observer
	Now      func() time.Time
	NewID    func() string
}

// Builder resolves credentials and constructs provider clients per run.
type Builder struct {
	cfg      *config.Config
	resolver *credentials.Resolver
	log      zerolog.Logger
}

// NewBuilder creates a per-run config builder.
func NewBuilder(cfg *config.Config, resolver *credentials.Resolver, log zerolog.Logger) *Builder {
	return &Builder{cfg: cfg, resolver: resolver, log: log}
}

// Build resolves credentials now and returns a run config. A missing
// OPENAI_API_KEY is a CredentialMissing StageError; a missing
// ASSEMBLYAI_API_KEY only leaves Diarizer nil.
func (b *Builder) Build(observer Observer) (*Config, error) {
	openaiKey, _, err := b.resolver.Lookup(credentials.OpenAIKey)
	if err != nil {
		return nil, stageError(StageCredentials, CredentialMissing, err)
	}
	if openaiKey == "" {
		return nil, stageError(StageCredentials, CredentialMissing,
			fmt.Errorf("%s is not set in the environment or %s", credentials.OpenAIKey, b.cfg.SecretsFile))
	}

	tc := b.cfg.Transcription
	ac := b.cfg.Analysis
	dc := b.cfg.Diarization

	rc := &Config{
		Transcriber: transcribe.NewOpenAIClient(tc.URL, openaiKey, tc.Model, tc.Timeout),
		TranscribeOpts: transcribe.TranscribeOpts{
			Temperature: tc.Temperature,
			Language:    tc.Language,
			Prompt:      tc.Prompt,
		},
		Analyzer: analysis.NewAnalyzer(
			analysis.NewChatClient(ac.URL, openaiKey, ac.Model, ac.Temperature, ac.MaxTokens, ac.Timeout),
			ac.MaxChars,
			b.log.With().Str("component", "analysis").Logger(),
		),
		Log:      b.log,
		Observer: observer,
	}

	if aaiKey := b.resolver.Get(credentials.AssemblyAIKey); aaiKey != "" {
		rc.Diarizer = diarize.NewAssemblyAIClient(dc.BaseURL, aaiKey, diarize.Options{
			SpeakersExpected: dc.SpeakersExpected,
			Sentiment:        dc.Sentiment,
			Highlights:       dc.Highlights,
			PollInterval:     dc.PollInterval,
			Timeout:          dc.Timeout,
		})
	}
	return rc, nil
}

func (c *Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Config) newID() string {
	if c.NewID != nil {
		return c.NewID()
	}
	return uuid.NewString()
}
