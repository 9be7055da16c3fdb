package meeting

import (
	"encoding/json"
	"strings"
	"time"
)

// UnknownLanguage is reported when the transcription provider gives no language.
const UnknownLanguage = "unknown"

// TranscriptionResult is the output of the transcription stage.
type TranscriptionResult struct {
	Text            string  `json:"text"`
	Language        string  `json:"language"`
	DurationSeconds float64 `json:"duration_seconds"`
	OK              bool    `json:"ok"`
	Error           string  `json:"error,omitempty"`
}

// UnmarshalJSON also accepts a bare transcript string, as found in some
// hand-made demo files.
func (t *TranscriptionResult) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*t = TranscriptionResult{Text: text, Language: UnknownLanguage, OK: text != ""}
		return nil
	}
	type plain TranscriptionResult
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = TranscriptionResult(p)
	return nil
}

// SpeakerSegment is one diarized utterance. Times are in seconds.
type SpeakerSegment struct {
	SpeakerLabel string  `json:"speaker_label"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Confidence   float64 `json:"confidence"`
	Text         string  `json:"text,omitempty"`
}

// Duration returns the segment length in seconds.
func (s SpeakerSegment) Duration() float64 {
	return s.EndSeconds - s.StartSeconds
}

// Diarization is the output of the diarization stage.
type Diarization struct {
	Segments     []SpeakerSegment `json:"segments"`
	SpeakerCount int              `json:"speaker_count"`
	OK           bool             `json:"ok"`
	Error        string           `json:"error,omitempty"`
}

// CountSpeakers returns the number of distinct speaker labels.
func CountSpeakers(segments []SpeakerSegment) int {
	seen := make(map[string]struct{}, 4)
	for _, s := range segments {
		seen[s.SpeakerLabel] = struct{}{}
	}
	return len(seen)
}

// MeetingInfo is the header block used by demo exports.
type MeetingInfo struct {
	Title           string  `json:"title,omitempty"`
	Language        string  `json:"language,omitempty"`
	Filename        string  `json:"filename,omitempty"`
	Date            string  `json:"date,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// Record is the merged result of one pipeline run, or one demo file.
// It is never modified after assembly.
type Record struct {
	ID                   string              `json:"id,omitempty"`
	Filename             string              `json:"filename,omitempty"`
	MeetingInfo          *MeetingInfo        `json:"meeting_info,omitempty"`
	Transcription        TranscriptionResult `json:"transcription"`
	Diarization          Diarization         `json:"diarization"`
	Analysis             StrategicAnalysis   `json:"ai_analysis"`
	ProcessedAt          Timestamp           `json:"processed_at"`
	TranscriptionSuccess bool                `json:"transcription_success"`
	DiarizationSuccess   bool                `json:"diarization_success"`
	AnalysisSuccess      bool                `json:"ai_analysis_success"`
	AnalysisFallback     bool                `json:"ai_analysis_fallback,omitempty"`
	AnalysisLocale       string              `json:"ai_analysis_locale,omitempty"`
	Warnings             []string            `json:"warnings,omitempty"`
}

// Title returns the display title.
func (r *Record) Title() string {
	if r.MeetingInfo != nil && r.MeetingInfo.Title != "" {
		return r.MeetingInfo.Title
	}
	if r.Filename != "" {
		return r.Filename
	}
	if r.MeetingInfo != nil && r.MeetingInfo.Filename != "" {
		return r.MeetingInfo.Filename
	}
	return "Untitled meeting"
}

// Language returns the best known language code.
func (r *Record) Language() string {
	if r.MeetingInfo != nil && r.MeetingInfo.Language != "" {
		return strings.ToLower(r.MeetingInfo.Language)
	}
	if r.Transcription.Language != "" {
		return r.Transcription.Language
	}
	return UnknownLanguage
}

// Timestamp is a time.Time that also decodes the zone-less ISO strings and
// Unix seconds found in older demo exports.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NewTimestamp wraps t truncated to the second, in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Second)}
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339))
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*ts = Timestamp{}
		return nil
	}
	var unix float64
	if err := json.Unmarshal(data, &unix); err == nil {
		if unix == 0 {
			*ts = Timestamp{}
			return nil
		}
		*ts = NewTimestamp(time.Unix(int64(unix), 0))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*ts = Timestamp{}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			*ts = NewTimestamp(t)
			return nil
		}
		lastErr = err
	}
	return lastErr
}
