package present

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/snarg/meeting-intel/internal/credentials"
	"github.com/snarg/meeting-intel/internal/meeting"
)

const legacyJSON = `{
  "meeting_info": {"title": "Board review", "language": "it"},
  "transcription": "Buongiorno a tutti",
  "ai_analysis": {
    "insight_strategici": [{"insight": "Espandere in Germania", "azione_suggerita": "Aprire un ufficio"}, {"priorita": "alta"}],
    "opportunita_innovation": [{"opportunita": "Supporto AI", "impatto_potenziale": "molto alto"}, {"opportunita": "Portale"}],
    "temi_ricorrenti": [{"tema": "Prezzi"}]
  }
}`

const currentJSON = `{
  "filename": "weekly.m4a",
  "transcription": {"text": "we ship", "language": "en", "duration_seconds": 95, "ok": true},
  "diarization": {"segments": [
      {"speaker_label": "A", "start_seconds": 1.5, "end_seconds": 4.2, "confidence": 0.9, "text": "hi"},
      {"speaker_label": "B", "start_seconds": 5, "end_seconds": 10, "confidence": 0.8},
      {"speaker_label": "A", "start_seconds": 10, "end_seconds": 12.7, "confidence": 0.95}
    ], "speaker_count": 2, "ok": true},
  "ai_analysis": {
    "strategic_insights": [{"insight": "Ship sooner", "owner_hint": "CTO"}],
    "innovation_opportunities": [],
    "recurring_themes": [],
    "decisions_made": [{"decisione": "Launch in May", "responsabile": "Ana"}],
    "weak_signals": [],
    "team_dynamics": [{"osservazione": "Quiet QA"}]
  },
  "processed_at": "2024-05-01T09:30:00Z",
  "transcription_success": true,
  "diarization_success": true,
  "ai_analysis_success": true
}`

func decode(t *testing.T, s string) *meeting.Record {
	t.Helper()
	r, err := meeting.Decode([]byte(s))
	require.NoError(t, err)
	return r
}

func tab(v MeetingView, key string) Tab {
	for _, t := range v.Tabs {
		if t.Key == key {
			return t
		}
	}
	return Tab{}
}

func detail(l Line, label string) (string, bool) {
	for _, d := range l.Details {
		if d.Label == label {
			return d.Value, true
		}
	}
	return "", false
}

func TestView_LegacySchema(t *testing.T) {
	v := View(decode(t, legacyJSON))

	assert.Equal(t, "Board review", v.Title)
	assert.Equal(t, "IT", v.Language)
	require.Len(t, v.Tabs, 2+len(meeting.AllCategories))
	assert.Equal(t, "transcript", v.Tabs[0].Key)
	assert.Equal(t, "Buongiorno a tutti", v.Tabs[0].Lines[0].Title)

	insights := tab(v, string(meeting.StrategicInsights))
	require.Len(t, insights.Lines, 2)
	action, ok := detail(insights.Lines[0], "Action")
	assert.True(t, ok)
	assert.Equal(t, "Aprire un ufficio", action)
	assert.Equal(t, NA, insights.Lines[1].Title)
	_, hasAction := detail(insights.Lines[1], "Action")
	assert.False(t, hasAction, "missing action is omitted")

	opps := tab(v, string(meeting.InnovationOpportunities))
	impact, _ := detail(opps.Lines[0], "Impact")
	assert.Equal(t, "Molto Alto", impact)
	impact, _ = detail(opps.Lines[1], "Impact")
	assert.Equal(t, NA, impact)

	themes := tab(v, string(meeting.RecurringThemes))
	importance, _ := detail(themes.Lines[0], "Importance")
	assert.Equal(t, NA, importance)

	assert.Empty(t, tab(v, string(meeting.TeamDynamics)).Lines)
	assert.Empty(t, v.Speakers)
}

func TestView_CurrentSchema(t *testing.T) {
	v := View(decode(t, currentJSON))

	assert.Equal(t, "weekly.m4a", v.Title)
	assert.Equal(t, "EN", v.Language)
	assert.Equal(t, "1:35.0", v.Duration)
	assert.Equal(t, "2024-05-01 09:30", v.ProcessedAt)
	assert.True(t, v.Status.Analysis)

	require.Len(t, v.Speakers, 2)
	assert.Equal(t, "A", v.Speakers[0].Label)
	assert.Equal(t, 2, v.Speakers[0].Segments)
	assert.InDelta(t, 5.4, v.Speakers[0].TalkSeconds, 1e-9)

	speakers := tab(v, "speakers")
	require.Len(t, speakers.Lines, 3)
	assert.Equal(t, "[0:01.5–0:04.2] Speaker A", speakers.Lines[0].Title)

	insights := tab(v, string(meeting.StrategicInsights))
	extra, ok := detail(insights.Lines[0], "owner_hint")
	assert.True(t, ok)
	assert.Equal(t, "CTO", extra)

	decisions := tab(v, string(meeting.DecisionsMade))
	owner, _ := detail(decisions.Lines[0], "Owner")
	assert.Equal(t, "Ana", owner)

	assert.Len(t, tab(v, string(meeting.TeamDynamics)).Lines, 1)
}

func TestView_LegacyRoundTripPresentable(t *testing.T) {
	rec := decode(t, currentJSON)
	data, err := meeting.EncodeLegacy(rec)
	require.NoError(t, err)
	back := decode(t, string(data))

	before, after := View(rec), View(back)
	assert.Equal(t, before.Title, after.Title)
	assert.Equal(t, before.Language, after.Language)
	assert.Equal(t, before.Tabs, after.Tabs)
}

func TestSummarize(t *testing.T) {
	o := Summarize([]*meeting.Record{decode(t, legacyJSON), decode(t, currentJSON)})
	assert.Equal(t, Overview{Meetings: 2, Insights: 3, Opportunities: 2, Themes: 1, Decisions: 1}, o)
	assert.Equal(t, Overview{}, Summarize(nil))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "High", TitleCase("high"))
	assert.Equal(t, "Molto Alto", TitleCase("MOLTO alto"))
	assert.Equal(t, "Medio-Alto", TitleCase("medio-alto"))
	assert.Equal(t, "", TitleCase(""))
}

func TestClock(t *testing.T) {
	assert.Equal(t, "0:01.5", Clock(1.5))
	assert.Equal(t, "1:05.0", Clock(65))
	assert.Equal(t, "1:01:01", Clock(3661))
	assert.Equal(t, "0:00.0", Clock(-3))
	assert.Equal(t, "1:00.0", Clock(59.96))
	assert.Equal(t, "2:00.0", Clock(119.99))
	assert.Equal(t, "1:00:00", Clock(3599.96))
}

func TestFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)
	f.Overview(Overview{Meetings: 2, Insights: 3})
	f.Meeting(View(decode(t, legacyJSON)))
	f.Credentials([]credentials.Status{
		{Name: credentials.OpenAIKey, Purpose: "transcription", Resolvable: true, Source: credentials.SourceEnv},
		{Name: credentials.AssemblyAIKey, Purpose: "speaker diarization"},
	})
	out := buf.String()

	assert.Contains(t, out, "Meetings:      2")
	assert.Contains(t, out, "🎙️  Board review (IT)")
	assert.Contains(t, out, "1. Espandere in Germania")
	assert.Contains(t, out, "Action: Aprire un ufficio")
	assert.Contains(t, out, "✅ OPENAI_API_KEY: found in env")
	assert.Contains(t, out, "❌ ASSEMBLYAI_API_KEY: not set")
	assert.NotContains(t, out, "Team dynamics")
}

func TestWriteXLSX(t *testing.T) {
	rec := decode(t, currentJSON)
	rec.ProcessedAt = meeting.NewTimestamp(time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, []*meeting.Record{decode(t, legacyJSON), rec}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Equal(t, overviewSheet, sheets[0])
	assert.Contains(t, sheets, "Opportunities")
	assert.Contains(t, sheets, "Competitive intelligence")

	rows, err := f.GetRows(overviewSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Board review", rows[1][0])
	assert.Equal(t, "weekly.m4a", rows[2][0])

	opps, err := f.GetRows("Opportunities")
	require.NoError(t, err)
	require.Len(t, opps, 3)
	assert.Equal(t, "Supporto AI", opps[1][2])
	assert.True(t, strings.EqualFold("Molto Alto", opps[1][4]))
}
