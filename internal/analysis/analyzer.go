package analysis

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/snarg/meeting-intel/internal/meeting"
)

// DefaultMaxChars is the transcript length limit, in runes, sent to the model.
const DefaultMaxChars = 4000

// Outcome is the result of one analysis call.
//
// Err is nil on success. When the model reply was malformed, Fallback is set,
// Analysis holds the canned content and Err wraps ErrMalformed. Any other Err
// is a transport failure and Analysis is empty.
type Outcome struct {
	Analysis meeting.StrategicAnalysis
	Locale   Locale
	Model    string
	Fallback bool
	Err      error
}

// Malformed reports whether the outcome came from the fallback path.
func (o Outcome) Malformed() bool { return errors.Is(o.Err, ErrMalformed) }

// modelNamer is implemented by completers that know their model id.
type modelNamer interface {
	Model() string
}

// Analyzer turns a transcript into a StrategicAnalysis with one model call.
type Analyzer struct {
	chat     Completer
	maxChars int
	log      zerolog.Logger
}

// NewAnalyzer creates an analyzer. maxChars <= 0 selects DefaultMaxChars.
func NewAnalyzer(chat Completer, maxChars int, log zerolog.Logger) *Analyzer {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Analyzer{chat: chat, maxChars: maxChars, log: log}
}

func (a *Analyzer) model() string {
	if m, ok := a.chat.(modelNamer); ok {
		return m.Model()
	}
	return ""
}

// Analyze never retries. A malformed reply is replaced by the locale's
// fallback content; a transport error yields an empty analysis.
func (a *Analyzer) Analyze(ctx context.Context, transcript, lang string) Outcome {
	locale := DetectPromptLocale(transcript, lang)
	text := Truncate(transcript, a.maxChars)
	out := Outcome{Analysis: meeting.NewStrategicAnalysis(), Locale: locale, Model: a.model()}

	system, user, err := Prompt(locale, text)
	if err != nil {
		out.Err = err
		return out
	}

	content, err := a.chat.Complete(ctx, system, user)
	if err != nil {
		out.Err = err
		return out
	}

	parsed, err := Parse(content)
	if err != nil {
		a.log.Warn().Err(err).Str("locale", string(locale)).Str("model", out.Model).Int("content_len", len(content)).Msg("analysis output malformed, using fallback")
		out.Analysis, out.Fallback, out.Err = Fallback(locale), true, err
		return out
	}

	out.Analysis = parsed
	return out
}
