package analysis

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/snarg/meeting-intel/internal/meeting"
)

//go:embed prompts.yaml
var promptsYAML []byte

//go:embed fallback.yaml
var fallbackYAML []byte

type promptPair struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

var (
	prompts       map[Locale]promptPair
	userTemplates map[Locale]*template.Template
	fallbacks     map[Locale]meeting.StrategicAnalysis
)

func init() {
	if err := loadPrompts(promptsYAML); err != nil {
		panic(err)
	}
	if err := loadFallbacks(fallbackYAML); err != nil {
		panic(err)
	}
}

func loadPrompts(data []byte) error {
	var raw map[Locale]promptPair
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse prompts: %w", err)
	}
	tmpls := make(map[Locale]*template.Template, len(raw))
	for _, l := range []Locale{Italian, English} {
		p, ok := raw[l]
		if !ok || p.System == "" || p.User == "" {
			return fmt.Errorf("prompts: locale %q missing", l)
		}
		t, err := template.New(string(l)).Parse(p.User)
		if err != nil {
			return fmt.Errorf("prompts: locale %q: %w", l, err)
		}
		tmpls[l] = t
	}
	prompts = raw
	userTemplates = tmpls
	return nil
}

func loadFallbacks(data []byte) error {
	var raw map[Locale]map[string][]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse fallbacks: %w", err)
	}
	out := make(map[Locale]meeting.StrategicAnalysis, len(raw))
	for _, l := range []Locale{Italian, English} {
		sections, ok := raw[l]
		if !ok {
			return fmt.Errorf("fallbacks: locale %q missing", l)
		}
		a := meeting.NewStrategicAnalysis()
		for name, items := range sections {
			c, ok := meeting.ParseCategory(name)
			if !ok {
				return fmt.Errorf("fallbacks: unknown category %q", name)
			}
			conv := make([]meeting.Item, len(items))
			for i, it := range items {
				conv[i] = meeting.Item(it)
			}
			a = a.With(c, conv...)
		}
		for _, c := range meeting.MandatoryCategories {
			if a.Count(c) == 0 {
				return fmt.Errorf("fallbacks: locale %q has no %s items", l, c)
			}
		}
		out[l] = a
	}
	fallbacks = out
	return nil
}

// Prompt returns the system and user messages for a locale.
func Prompt(l Locale, transcript string) (system, user string, err error) {
	t, ok := userTemplates[l]
	if !ok {
		l, t = English, userTemplates[English]
	}
	var b strings.Builder
	if err := t.Execute(&b, struct{ Transcript string }{transcript}); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(prompts[l].System), b.String(), nil
}

// Fallback returns the canned analysis used when model output is unusable.
func Fallback(l Locale) meeting.StrategicAnalysis {
	if a, ok := fallbacks[l]; ok {
		return a
	}
	return fallbacks[English]
}
