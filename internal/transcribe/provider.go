package transcribe

import (
	"context"
	"strings"
)

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error)
	Name() string  // "openai"
	Model() string // model identifier for logs and records
}

// TranscribeOpts are per-request options.
// Zero-value fields are omitted from the request.
type TranscribeOpts struct {
	Temperature float64
	Language    string // empty = provider auto-detection
	Prompt      string // domain vocabulary hint
}

// Response is the common transcription result from any provider.
type Response struct {
	Text     string
	Language string  // ISO-639-1 code, or "unknown"
	Duration float64 // audio duration in seconds
}

// languageCodes maps the language names some providers return to ISO-639-1.
var languageCodes = map[string]string{
	"italian":    "it",
	"italiano":   "it",
	"english":    "en",
	"inglese":    "en",
	"french":     "fr",
	"german":     "de",
	"spanish":    "es",
	"portuguese": "pt",
	"dutch":      "nl",
	"polish":     "pl",
	"russian":    "ru",
	"chinese":    "zh",
	"japanese":   "ja",
	"korean":     "ko",
	"arabic":     "ar",
	"turkish":    "tr",
	"swedish":    "sv",
	"romanian":   "ro",
	"greek":      "el",
}

// NormalizeLanguage converts a provider language value to a lowercase
// ISO-639-1 code. Unrecognised names are returned lowercased; empty input
// yields "unknown".
func NormalizeLanguage(lang string) string {
	l := strings.ToLower(strings.TrimSpace(lang))
	if l == "" {
		return "unknown"
	}
	if code, ok := languageCodes[l]; ok {
		return code
	}
	// "it-IT", "en_US"
	if len(l) > 2 && (l[2] == '-' || l[2] == '_') {
		return l[:2]
	}
	return l
}
