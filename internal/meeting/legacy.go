package meeting

import (
	"encoding/json"
	"strings"
)

// legacyRecord mirrors the layout of the analysis_transcription_*.json files
// the original dashboards were built around.
type legacyRecord struct {
	MeetingInfo          MeetingInfo         `json:"meeting_info"`
	Transcription        TranscriptionResult `json:"transcription"`
	Diarization          Diarization         `json:"diarization"`
	Analysis             json.RawMessage     `json:"ai_analysis"`
	ProcessedAt          Timestamp           `json:"processed_at"`
	TranscriptionSuccess bool                `json:"transcription_success"`
	DiarizationSuccess   bool                `json:"diarization_success"`
	AnalysisSuccess      bool                `json:"ai_analysis_success"`
	AnalysisFallback     bool                `json:"ai_analysis_fallback,omitempty"`
}

// EncodeLegacy writes r in the legacy demo schema: a meeting_info header and
// Italian names for the first three analysis sections.
func EncodeLegacy(r *Record) ([]byte, error) {
	analysis, err := r.Analysis.MarshalLegacy()
	if err != nil {
		return nil, err
	}

	info := MeetingInfo{}
	if r.MeetingInfo != nil {
		info = *r.MeetingInfo
	}
	if info.Title == "" {
		info.Title = r.Title()
	}
	if info.Language == "" {
		info.Language = r.Language()
	}
	if info.Filename == "" {
		info.Filename = r.Filename
	}
	if info.DurationSeconds == 0 {
		info.DurationSeconds = r.Transcription.DurationSeconds
	}
	if info.Date == "" && !r.ProcessedAt.IsZero() {
		info.Date = r.ProcessedAt.Format("2006-01-02")
	}

	return json.MarshalIndent(legacyRecord{
		MeetingInfo:          info,
		Transcription:        r.Transcription,
		Diarization:          r.Diarization,
		Analysis:             analysis,
		ProcessedAt:          r.ProcessedAt,
		TranscriptionSuccess: r.TranscriptionSuccess,
		DiarizationSuccess:   r.DiarizationSuccess,
		AnalysisSuccess:      r.AnalysisSuccess,
		AnalysisFallback:     r.AnalysisFallback,
	}, "", "  ")
}

// Decode reads a record in either schema variant.
func Decode(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.Filename == "" && r.MeetingInfo != nil {
		r.Filename = r.MeetingInfo.Filename
	}
	return &r, nil
}

// LegacyFilename returns the demo corpus file name for a meeting.
func LegacyFilename(name string) string {
	base := name
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		base = "meeting"
	}
	return "analysis_transcription_" + base + ".json"
}
