package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snarg/meeting-intel/internal/meeting"
)

// ── Locale ───────────────────────────────────────────────────────────

func TestDetectPromptLocale(t *testing.T) {
	tests := []struct {
		name string
		text string
		hint string
		want Locale
	}{
		{"code_hint", "the quarterly numbers", "it", Italian},
		{"name_hint", "", "Italian", Italian},
		{"italiano_hint", "", "italiano", Italian},
		{"other_code_wins_over_text", "Abbiamo deciso che il budget è per la crescita", "en", English},
		{"heuristic_italian", "Abbiamo deciso che il budget della crescita non è per questo anno", "", Italian},
		{"heuristic_english", "We decided that the budget is for growth and this year", "unknown", English},
		{"empty_defaults_english", "", "", English},
		{"tie_defaults_english", "che the", "", English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPromptLocale(tt.text, tt.hint))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "perché", Truncate("perché sì", 6))
	assert.Equal(t, "abc", Truncate("abc", 0))

	long := strings.Repeat("è", DefaultMaxChars+50)
	got := Truncate(long, DefaultMaxChars)
	assert.Equal(t, DefaultMaxChars, len([]rune(got)))
}

// ── Prompts & fallbacks ──────────────────────────────────────────────

func TestPrompt_EmbedsTranscript(t *testing.T) {
	for _, l := range []Locale{Italian, English} {
		system, user, err := Prompt(l, "TRANSCRIPT-BODY {not a template}")
		require.NoError(t, err)
		assert.NotEmpty(t, system)
		assert.Contains(t, user, "TRANSCRIPT-BODY {not a template}")
		assert.Contains(t, user, `"strategic_insights"`)
	}
	sysIT, _, _ := Prompt(Italian, "x")
	sysEN, _, _ := Prompt(English, "x")
	assert.NotEqual(t, sysIT, sysEN)
}

func TestFallback_SchemaValidAndNonEmpty(t *testing.T) {
	for _, l := range []Locale{Italian, English} {
		a := Fallback(l)
		assert.True(t, a.Valid(), "locale %s", l)
		for _, c := range meeting.MandatoryCategories {
			assert.NotZero(t, a.Count(c), "locale %s category %s", l, c)
		}
	}
	assert.NotEqual(t,
		Fallback(Italian).Items(meeting.StrategicInsights)[0]["insight"],
		Fallback(English).Items(meeting.StrategicInsights)[0]["insight"])
}

// ── Parse ────────────────────────────────────────────────────────────

func TestParse_WellFormed(t *testing.T) {
	content := "```json\n{\"strategic_insights\":[{\"insight\":\"Open Milan office {Q3}\",\"priorita\":1}],\"weak_signals\":[]}\n```"
	a, err := Parse(content)
	require.NoError(t, err)
	assert.True(t, a.Valid())
	assert.Equal(t, 1, a.Count(meeting.StrategicInsights))
	assert.Equal(t, "Open Milan office {Q3}", a.Items(meeting.StrategicInsights)[0]["insight"])
	assert.Equal(t, "1", a.Items(meeting.StrategicInsights)[0]["priorita"])
}

func TestParse_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"I could not analyse this meeting.",
		`{"strategic_insights": [{"insight": "unterminated"`,
		`{"summary": "no categories here"}`,
		`{"strategic_insights": "should be a list"}`,
		`{"strategic_insights": [42]}`,
	}
	for _, in := range inputs {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", in)
	}
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":"}"}`, extractJSON(`noise {"a":"}"} trailing {"b":1}`))
	assert.Equal(t, `{"a":"\"{"}`, extractJSON(`{"a":"\"{"}`))
	assert.Equal(t, "", extractJSON("no braces"))
}

// ── Analyzer ─────────────────────────────────────────────────────────

type fakeCompleter struct {
	reply  string
	err    error
	calls  int
	system string
	user   string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.system, f.user = system, user
	return f.reply, f.err
}

func TestAnalyzer_Success(t *testing.T) {
	fc := &fakeCompleter{reply: `{"strategic_insights":[{"insight":"Grow"}],"innovation_opportunities":[],"recurring_themes":[],"decisions_made":[],"weak_signals":[]}`}
	out := NewAnalyzer(fc, 0, zerolog.Nop()).Analyze(context.Background(), "the meeting", "en")

	require.NoError(t, out.Err)
	assert.False(t, out.Fallback)
	assert.Equal(t, English, out.Locale)
	assert.Equal(t, 1, out.Analysis.Count(meeting.StrategicInsights))
	assert.Equal(t, 1, fc.calls)
}

func TestAnalyzer_MalformedUsesFallback(t *testing.T) {
	for _, reply := range []string{"not json", `{"strategic_insights": {}}`, `{"x": 1}`, "{"} {
		fc := &fakeCompleter{reply: reply}
		out := NewAnalyzer(fc, 0, zerolog.Nop()).Analyze(context.Background(), "riunione", "it")

		assert.True(t, out.Fallback, "reply %q", reply)
		assert.True(t, out.Malformed())
		assert.Equal(t, Italian, out.Locale)
		assert.True(t, out.Analysis.Valid())
		assert.False(t, out.Analysis.Empty())
		assert.Equal(t, Fallback(Italian).Total(), out.Analysis.Total())
		assert.Equal(t, 1, fc.calls, "model must not be retried")
	}
}

func TestAnalyzer_TransportFailure(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("connection refused")}
	out := NewAnalyzer(fc, 0, zerolog.Nop()).Analyze(context.Background(), "text", "en")

	require.Error(t, out.Err)
	assert.False(t, out.Fallback)
	assert.False(t, out.Malformed())
	assert.True(t, out.Analysis.Empty())
	assert.True(t, out.Analysis.Valid())
	assert.Equal(t, 1, fc.calls)
}

func TestAnalyzer_TruncatesTranscript(t *testing.T) {
	fc := &fakeCompleter{reply: `{"weak_signals":[]}`}
	transcript := strings.Repeat("a", 50) + "TAIL"
	NewAnalyzer(fc, 50, zerolog.Nop()).Analyze(context.Background(), transcript, "en")
	assert.NotContains(t, fc.user, "TAIL")
	assert.Contains(t, fc.user, strings.Repeat("a", 50))
}

func TestAnalyzer_ReportsChatModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"weak_signals\":[]}"}}]}`))
	}))
	defer srv.Close()

	cc := NewChatClient(srv.URL, "k", "gpt-4o-mini", 0.2, 0, 5*time.Second)
	out := NewAnalyzer(cc, 0, zerolog.Nop()).Analyze(context.Background(), "the meeting", "en")
	require.NoError(t, out.Err)
	assert.Equal(t, "gpt-4o-mini", out.Model)

	out = NewAnalyzer(&fakeCompleter{reply: `{}`}, 0, zerolog.Nop()).Analyze(context.Background(), "the meeting", "en")
	assert.Empty(t, out.Model)
}

// ── ChatClient ───────────────────────────────────────────────────────

func TestChatClient_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"weak_signals\":[]}"}}]}`))
	}))
	defer srv.Close()

	cc := NewChatClient(srv.URL, "sk-test", "gpt-4o-mini", 0.2, 2000, 5*time.Second)
	content, err := cc.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, `{"weak_signals":[]}`, content)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 0.2, got.Temperature)
	assert.Equal(t, 2000, got.MaxTokens)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "usr", got.Messages[1].Content)
}

func TestChatClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			w.Write([]byte(`{"choices":[]}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	_, err := NewChatClient(srv.URL, "k", "m", 0.2, 0, time.Second).Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")

	_, err = NewChatClient(srv.URL+"/empty", "k", "m", 0.2, 0, time.Second).Complete(context.Background(), "s", "u")
	require.Error(t, err)
}
