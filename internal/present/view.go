// Package present turns records into display structures for the dashboard,
// the CLI and spreadsheet export. It accepts records decoded from either the
// current or the legacy demo schema.
package present

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/snarg/meeting-intel/internal/meeting"
)

// NA is shown for missing values.
const NA = "N/A"

// field describes how one item key is displayed.
type field struct {
	Key    string
	Label  string
	Always bool // show NA when missing instead of omitting
	Title  bool // title-case the value
}

// categoryLayout describes how one category renders.
type categoryLayout struct {
	Category meeting.Category
	Label    string
	Icon     string
	TitleKey string
	Fields   []field
}

var layouts = []categoryLayout{
	{meeting.StrategicInsights, "Insights", "💡", "insight", []field{
		{Key: "implicazione", Label: "Implication"},
		{Key: "azione_suggerita", Label: "Action"},
		{Key: "priorita", Label: "Priority"},
		{Key: "timeline", Label: "Timeline"},
	}},
	{meeting.InnovationOpportunities, "Opportunities", "🚀", "opportunita", []field{
		{Key: "descrizione", Label: "Description"},
		{Key: "impatto_potenziale", Label: "Impact", Always: true, Title: true},
		{Key: "effort", Label: "Effort"},
	}},
	{meeting.RecurringThemes, "Themes", "🔍", "tema", []field{
		{Key: "importanza", Label: "Importance", Always: true},
		{Key: "frequenza", Label: "Frequency"},
	}},
	{meeting.DecisionsMade, "Decisions", "✅", "decisione", []field{
		{Key: "responsabile", Label: "Owner"},
		{Key: "scadenza", Label: "Deadline"},
	}},
	{meeting.WeakSignals, "Weak signals", "📡", "segnale", []field{
		{Key: "possibile_impatto", Label: "Possible impact"},
	}},
	{meeting.TeamDynamics, "Team dynamics", "👥", "osservazione", []field{
		{Key: "suggerimento", Label: "Suggestion"},
	}},
	{meeting.CompetitiveIntelligence, "Competitive intelligence", "🏁", "competitor", []field{
		{Key: "informazione", Label: "Information"},
		{Key: "rilevanza", Label: "Relevance"},
	}},
}

func layoutFor(c meeting.Category) categoryLayout {
	for _, l := range layouts {
		if l.Category == c {
			return l
		}
	}
	return categoryLayout{Category: c, Label: string(c)}
}

// Detail is one labelled value under an item.
type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Line is one rendered category item.
type Line struct {
	Title   string   `json:"title"`
	Details []Detail `json:"details,omitempty"`
}

// Tab is one section of the meeting view.
type Tab struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Icon  string `json:"icon,omitempty"`
	Lines []Line `json:"lines"`
}

// Speaker summarises one diarized speaker.
type Speaker struct {
	Label        string  `json:"label"`
	Segments     int     `json:"segments"`
	TalkSeconds  float64 `json:"talk_seconds"`
	ShareOfTotal float64 `json:"share_of_total"`
}

// Status mirrors the per-stage success flags.
type Status struct {
	Transcription bool `json:"transcription"`
	Diarization   bool `json:"diarization"`
	Analysis      bool `json:"analysis"`
	Fallback      bool `json:"fallback"`
}

// MeetingView is everything the dashboard shows for one record.
type MeetingView struct {
	Title       string    `json:"title"`
	Language    string    `json:"language"`
	Filename    string    `json:"filename,omitempty"`
	ProcessedAt string    `json:"processed_at,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	Status      Status    `json:"status"`
	Speakers    []Speaker `json:"speakers"`
	Tabs        []Tab     `json:"tabs"`
	Warnings    []string  `json:"warnings,omitempty"`
}

// View builds the display structure for a record. Tabs are, in order:
// Transcript, Speakers, then one per category.
func View(r *meeting.Record) MeetingView {
	v := MeetingView{
		Title:    r.Title(),
		Language: strings.ToUpper(r.Language()),
		Filename: r.Filename,
		Status: Status{
			Transcription: r.TranscriptionSuccess || r.Transcription.OK,
			Diarization:   r.DiarizationSuccess,
			Analysis:      r.AnalysisSuccess,
			Fallback:      r.AnalysisFallback,
		},
		Speakers: Speakers(r.Diarization.Segments),
		Warnings: r.Warnings,
	}
	if !r.ProcessedAt.IsZero() {
		v.ProcessedAt = r.ProcessedAt.Format("2006-01-02 15:04")
	}
	if d := r.Transcription.DurationSeconds; d > 0 {
		v.Duration = Clock(d)
	}

	v.Tabs = append(v.Tabs, transcriptTab(r), speakersTab(r.Diarization.Segments))
	for _, c := range meeting.AllCategories {
		v.Tabs = append(v.Tabs, CategoryTab(r.Analysis, c))
	}
	return v
}

func transcriptTab(r *meeting.Record) Tab {
	t := Tab{Key: "transcript", Label: "Transcript", Icon: "📝", Lines: []Line{}}
	text := strings.TrimSpace(r.Transcription.Text)
	if text == "" {
		text = NA
	}
	t.Lines = append(t.Lines, Line{Title: text})
	return t
}

func speakersTab(segs []meeting.SpeakerSegment) Tab {
	t := Tab{Key: "speakers", Label: "Speakers", Icon: "🗣️", Lines: []Line{}}
	for _, s := range segs {
		title := fmt.Sprintf("[%s–%s] Speaker %s", Clock(s.StartSeconds), Clock(s.EndSeconds), s.SpeakerLabel)
		l := Line{Title: title}
		if s.Text != "" {
			l.Details = append(l.Details, Detail{Label: "Text", Value: s.Text})
		}
		l.Details = append(l.Details, Detail{Label: "Confidence", Value: fmt.Sprintf("%.0f%%", s.Confidence*100)})
		t.Lines = append(t.Lines, l)
	}
	return t
}

// CategoryTab renders the items of one category.
func CategoryTab(a meeting.StrategicAnalysis, c meeting.Category) Tab {
	lay := layoutFor(c)
	t := Tab{Key: string(c), Label: lay.Label, Icon: lay.Icon, Lines: []Line{}}
	for _, it := range a.Items(c) {
		t.Lines = append(t.Lines, renderItem(lay, it))
	}
	return t
}

func renderItem(lay categoryLayout, it meeting.Item) Line {
	l := Line{Title: it.Get(lay.TitleKey, NA)}
	used := map[string]bool{lay.TitleKey: true}
	for _, f := range lay.Fields {
		used[f.Key] = true
		v := it.Get(f.Key, "")
		if v == "" {
			if !f.Always {
				continue
			}
			v = NA
		} else if f.Title {
			v = TitleCase(v)
		}
		l.Details = append(l.Details, Detail{Label: f.Label, Value: v})
	}

	// Keys the layout does not know are shown as-is.
	var extra []string
	for k, v := range it {
		if !used[k] && v != "" {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		l.Details = append(l.Details, Detail{Label: k, Value: it[k]})
	}
	return l
}

// Speakers aggregates talk time per speaker, ordered by first appearance.
func Speakers(segs []meeting.SpeakerSegment) []Speaker {
	out := []Speaker{}
	idx := map[string]int{}
	var total float64
	for _, s := range segs {
		i, ok := idx[s.SpeakerLabel]
		if !ok {
			i = len(out)
			idx[s.SpeakerLabel] = i
			out = append(out, Speaker{Label: s.SpeakerLabel})
		}
		d := s.Duration()
		if d < 0 {
			d = 0
		}
		out[i].Segments++
		out[i].TalkSeconds += d
		total += d
	}
	if total > 0 {
		for i := range out {
			out[i].ShareOfTotal = out[i].TalkSeconds / total
		}
	}
	return out
}

// Clock formats seconds as m:ss.s, or h:mm:ss for an hour or more.
func Clock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	tenths := int64(math.Round(seconds * 10))
	if tenths >= 36000 {
		s := tenths / 10
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
	}
	m, rem := tenths/600, tenths%600
	return fmt.Sprintf("%d:%02d.%d", m, rem/10, rem%10)
}

// TitleCase upper-cases the first letter of every word and lower-cases the rest.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}
