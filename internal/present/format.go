package present

import (
	"fmt"
	"io"
	"strings"

	"github.com/snarg/meeting-intel/internal/credentials"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) Stage(state string) {
	switch state {
	case "transcribing":
		fmt.Fprintf(f.w, "📝 Transcribing audio...\n")
	case "diarizing":
		fmt.Fprintf(f.w, "🗣️  Identifying speakers...\n")
	case "analyzing":
		fmt.Fprintf(f.w, "🤖 Extracting strategic insights...\n")
	case "assembling":
		fmt.Fprintf(f.w, "📦 Assembling results...\n")
	}
}

func (f *Formatter) Saved(path string) {
	fmt.Fprintf(f.w, "✅ Analysis saved: %s\n", path)
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) Overview(o Overview) {
	fmt.Fprintf(f.w, "📊 Intelligence Overview\n\n")
	fmt.Fprintf(f.w, "  🎙️  Meetings:      %d\n", o.Meetings)
	fmt.Fprintf(f.w, "  💡 Insights:      %d\n", o.Insights)
	fmt.Fprintf(f.w, "  🚀 Opportunities: %d\n", o.Opportunities)
	fmt.Fprintf(f.w, "  🔍 Themes:        %d\n", o.Themes)
	fmt.Fprintf(f.w, "  ✅ Decisions:     %d\n\n", o.Decisions)
}

func (f *Formatter) Credentials(statuses []credentials.Status) {
	fmt.Fprintf(f.w, "🔑 Credentials:\n\n")
	for _, s := range statuses {
		if s.Resolvable {
			fmt.Fprintf(f.w, "  ✅ %s: found in %s (%s)\n", s.Name, s.Source, s.Purpose)
		} else {
			fmt.Fprintf(f.w, "  ❌ %s: not set (%s disabled)\n", s.Name, s.Purpose)
		}
	}
}

// Meeting prints the full view. Empty tabs are skipped; the transcript is
// shortened to its first lines.
func (f *Formatter) Meeting(v MeetingView) {
	fmt.Fprintf(f.w, "\n🎙️  %s (%s)\n", v.Title, v.Language)
	if v.Duration != "" || v.ProcessedAt != "" {
		fmt.Fprintf(f.w, "   %s", v.Duration)
		if v.ProcessedAt != "" {
			fmt.Fprintf(f.w, "  processed %s", v.ProcessedAt)
		}
		fmt.Fprintln(f.w)
	}
	fmt.Fprintf(f.w, "   transcription %s  diarization %s  analysis %s\n",
		mark(v.Status.Transcription), mark(v.Status.Diarization), analysisMark(v.Status))
	for _, w := range v.Warnings {
		f.Warning(w)
	}

	for _, t := range v.Tabs {
		if len(t.Lines) == 0 {
			continue
		}
		fmt.Fprintf(f.w, "\n%s %s\n", t.Icon, t.Label)
		if t.Key == "transcript" {
			fmt.Fprintf(f.w, "%s\n", excerpt(t.Lines[0].Title, 600))
			continue
		}
		for i, l := range t.Lines {
			fmt.Fprintf(f.w, "  %d. %s\n", i+1, l.Title)
			for _, d := range l.Details {
				fmt.Fprintf(f.w, "     ➡️ %s: %s\n", d.Label, d.Value)
			}
		}
	}
}

func mark(ok bool) string {
	if ok {
		return "✅"
	}
	return "➖"
}

func analysisMark(s Status) string {
	if s.Fallback {
		return "🟡"
	}
	return mark(s.Analysis)
}

func excerpt(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + "…"
}
