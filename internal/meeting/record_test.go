package meeting

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// ── StrategicAnalysis ────────────────────────────────────────────────

func TestStrategicAnalysis_UnmarshalCurrentNames(t *testing.T) {
	input := `{
		"strategic_insights": [{"insight": "Expand to DACH", "implicazione": "new revenue", "azione_suggerita": "hire sales lead", "priorita": "alta"}],
		"innovation_opportunities": [],
		"recurring_themes": [{"tema": "pricing", "importanza": "alta"}],
		"decisions_made": [],
		"weak_signals": [],
		"team_dynamics": [{"osservazione": "CTO dominates"}]
	}`
	var a StrategicAnalysis
	if err := json.Unmarshal([]byte(input), &a); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if a.Count(StrategicInsights) != 1 {
		t.Errorf("insights = %d, want 1", a.Count(StrategicInsights))
	}
	if got := a.Items(StrategicInsights)[0].Get("azione_suggerita", "N/A"); got != "hire sales lead" {
		t.Errorf("azione_suggerita = %q", got)
	}
	if a.Count(TeamDynamics) != 1 {
		t.Errorf("team_dynamics = %d, want 1", a.Count(TeamDynamics))
	}
	if !a.Valid() {
		t.Error("analysis should be valid")
	}
}

func TestStrategicAnalysis_UnmarshalLegacyNames(t *testing.T) {
	input := `{
		"insight_strategici": [{"insight": "A"}, {"insight": "B"}],
		"opportunita_innovation": [{"opportunita": "C", "impatto_potenziale": "alto"}],
		"temi_ricorrenti": [{"tema": "D", "importanza": "media"}]
	}`
	var a StrategicAnalysis
	if err := json.Unmarshal([]byte(input), &a); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if a.Count(StrategicInsights) != 2 {
		t.Errorf("insights = %d, want 2", a.Count(StrategicInsights))
	}
	if a.Count(InnovationOpportunities) != 1 {
		t.Errorf("opportunities = %d, want 1", a.Count(InnovationOpportunities))
	}
	if a.Count(RecurringThemes) != 1 {
		t.Errorf("themes = %d, want 1", a.Count(RecurringThemes))
	}
	// Missing mandatory sections are normalized to empty lists.
	for _, c := range MandatoryCategories {
		if !a.Has(c) {
			t.Errorf("missing mandatory category %s", c)
		}
	}
}

func TestStrategicAnalysis_CurrentNameWins(t *testing.T) {
	for _, input := range []string{
		`{"strategic_insights": [{"insight": "new"}], "insight_strategici": [{"insight": "old"}]}`,
		`{"insight_strategici": [{"insight": "old"}], "strategic_insights": [{"insight": "new"}]}`,
	} {
		var a StrategicAnalysis
		if err := json.Unmarshal([]byte(input), &a); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if got := a.Items(StrategicInsights)[0]["insight"]; got != "new" {
			t.Errorf("insight = %q, want new (input %s)", got, input)
		}
	}
}

func TestStrategicAnalysis_RejectsWrongShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"section_is_string", `{"strategic_insights": "none"}`},
		{"item_is_string", `{"strategic_insights": ["none"]}`},
		{"item_is_null", `{"weak_signals": [null]}`},
		{"not_an_object", `[1, 2, 3]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a StrategicAnalysis
			if err := json.Unmarshal([]byte(tt.input), &a); err == nil {
				t.Errorf("expected error for %s", tt.input)
			}
		})
	}
}

func TestItem_StringifiesScalars(t *testing.T) {
	var it Item
	if err := json.Unmarshal([]byte(`{"priorita": 1, "urgent": true, "note": null, "tags": ["a","b"]}`), &it); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if it["priorita"] != "1" {
		t.Errorf("priorita = %q, want 1", it["priorita"])
	}
	if it["urgent"] != "true" {
		t.Errorf("urgent = %q, want true", it["urgent"])
	}
	if it.Get("note", "N/A") != "N/A" {
		t.Errorf("note = %q, want default", it.Get("note", "N/A"))
	}
	if it["tags"] != `["a","b"]` {
		t.Errorf("tags = %q", it["tags"])
	}
}

func TestStrategicAnalysis_MarshalOmitsEmptyOptional(t *testing.T) {
	a := NewStrategicAnalysis().With(StrategicInsights, Item{"insight": "x"})
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	for _, c := range MandatoryCategories {
		if !strings.Contains(s, `"`+string(c)+`"`) {
			t.Errorf("marshal missing %s: %s", c, s)
		}
	}
	if strings.Contains(s, "team_dynamics") {
		t.Errorf("empty optional section should be omitted: %s", s)
	}
}

func TestStrategicAnalysis_ZeroValueMarshalsEmptySections(t *testing.T) {
	var a StrategicAnalysis
	if !a.Empty() {
		t.Error("zero value should be empty")
	}
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"weak_signals":[]`) {
		t.Errorf("zero value should marshal empty lists, got %s", b)
	}
}

// ── Record ───────────────────────────────────────────────────────────

func TestLegacyRoundTrip(t *testing.T) {
	rec := &Record{
		ID:       "run-1",
		Filename: "board-meeting.m4a",
		Transcription: TranscriptionResult{
			Text: "Buongiorno a tutti", Language: "it", DurationSeconds: 30, OK: true,
		},
		Diarization: Diarization{
			Segments:     []SpeakerSegment{{SpeakerLabel: "A", StartSeconds: 1.5, EndSeconds: 4.2, Confidence: 0.9}},
			SpeakerCount: 1,
			OK:           true,
		},
		Analysis: NewStrategicAnalysis().
			With(StrategicInsights, Item{"insight": "Espandere", "azione_suggerita": "assumere"}).
			With(RecurringThemes, Item{"tema": "prezzi", "importanza": "alta"}),
		ProcessedAt:          NewTimestamp(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)),
		TranscriptionSuccess: true,
		DiarizationSuccess:   true,
		AnalysisSuccess:      true,
	}

	data, err := EncodeLegacy(rec)
	if err != nil {
		t.Fatalf("EncodeLegacy: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"insight_strategici"`) || !strings.Contains(s, `"temi_ricorrenti"`) {
		t.Fatalf("legacy names missing: %s", s)
	}
	if strings.Contains(s, `"strategic_insights"`) {
		t.Errorf("current name leaked into legacy output: %s", s)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Title() != "board-meeting.m4a" {
		t.Errorf("Title = %q", got.Title())
	}
	if got.Language() != "it" {
		t.Errorf("Language = %q, want it", got.Language())
	}
	if got.Analysis.Count(StrategicInsights) != 1 || got.Analysis.Count(RecurringThemes) != 1 {
		t.Errorf("analysis counts lost in round trip: %+v", got.Analysis)
	}
	if !got.ProcessedAt.Equal(rec.ProcessedAt.Time) {
		t.Errorf("ProcessedAt = %v, want %v", got.ProcessedAt, rec.ProcessedAt)
	}
}

func TestDecode_HandMadeDemoFile(t *testing.T) {
	input := `{
		"meeting_info": {"title": "Weekly sync", "language": "EN"},
		"transcription": "we agreed to ship",
		"processed_at": "2024-03-02T09:15:00.123456",
		"ai_analysis": {"insight_strategici": [{"insight": "ship"}]}
	}`
	rec, err := Decode([]byte(input))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rec.Title() != "Weekly sync" {
		t.Errorf("Title = %q", rec.Title())
	}
	if rec.Language() != "en" {
		t.Errorf("Language = %q, want en", rec.Language())
	}
	if rec.Transcription.Text != "we agreed to ship" {
		t.Errorf("Transcription.Text = %q", rec.Transcription.Text)
	}
	if rec.ProcessedAt.Year() != 2024 || rec.ProcessedAt.Month() != time.March {
		t.Errorf("ProcessedAt = %v", rec.ProcessedAt)
	}
}

func TestTimestamp_Formats(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{`"2024-04-15T19:03:22Z"`, time.Date(2024, 4, 15, 19, 3, 22, 0, time.UTC)},
		{`"2024-04-15 19:03:22"`, time.Date(2024, 4, 15, 19, 3, 22, 0, time.UTC)},
		{`"2024-04-15"`, time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)},
		{`1713207802`, time.Date(2024, 4, 15, 19, 3, 22, 0, time.UTC)},
	}
	for _, tt := range tests {
		var ts Timestamp
		if err := json.Unmarshal([]byte(tt.input), &ts); err != nil {
			t.Errorf("Unmarshal(%s): %v", tt.input, err)
			continue
		}
		if !ts.Equal(tt.want) {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.input, ts.Time, tt.want)
		}
	}
}

func TestCountSpeakers(t *testing.T) {
	segs := []SpeakerSegment{
		{SpeakerLabel: "A"}, {SpeakerLabel: "B"}, {SpeakerLabel: "A"}, {SpeakerLabel: "C"},
	}
	if n := CountSpeakers(segs); n != 3 {
		t.Errorf("CountSpeakers = %d, want 3", n)
	}
	if n := CountSpeakers(nil); n != 0 {
		t.Errorf("CountSpeakers(nil) = %d, want 0", n)
	}
}

func TestLegacyFilename(t *testing.T) {
	tests := map[string]string{
		"board meeting.m4a": "analysis_transcription_board_meeting.json",
		"q3-review.wav":     "analysis_transcription_q3-review.json",
		".mp3":              "analysis_transcription__mp3.json",
		"":                  "analysis_transcription_meeting.json",
	}
	for in, want := range tests {
		if got := LegacyFilename(in); got != want {
			t.Errorf("LegacyFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
