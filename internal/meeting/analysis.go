package meeting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Category names a section of a strategic analysis.
type Category string

const (
	StrategicInsights       Category = "strategic_insights"
	InnovationOpportunities Category = "innovation_opportunities"
	RecurringThemes         Category = "recurring_themes"
	DecisionsMade           Category = "decisions_made"
	WeakSignals             Category = "weak_signals"
	TeamDynamics            Category = "team_dynamics"
	CompetitiveIntelligence Category = "competitive_intelligence"
)

// MandatoryCategories must be present (possibly empty) in every analysis.
var MandatoryCategories = []Category{
	StrategicInsights,
	InnovationOpportunities,
	RecurringThemes,
	DecisionsMade,
	WeakSignals,
}

// OptionalCategories are emitted only when they carry items.
var OptionalCategories = []Category{
	TeamDynamics,
	CompetitiveIntelligence,
}

// AllCategories is the display order.
var AllCategories = append(append([]Category{}, MandatoryCategories...), OptionalCategories...)

// Older demo exports used Italian section names for the first three categories.
var legacyNames = map[Category]string{
	StrategicInsights:       "insight_strategici",
	InnovationOpportunities: "opportunita_innovation",
	RecurringThemes:         "temi_ricorrenti",
}

var categoryByName = func() map[string]Category {
	m := make(map[string]Category, len(AllCategories)+len(legacyNames))
	for _, c := range AllCategories {
		m[string(c)] = c
	}
	for c, legacy := range legacyNames {
		m[legacy] = c
	}
	return m
}()

// LegacyName returns the section name used by the legacy demo schema.
func (c Category) LegacyName() string {
	if n, ok := legacyNames[c]; ok {
		return n
	}
	return string(c)
}

// Mandatory reports whether c is one of the five required sections.
func (c Category) Mandatory() bool {
	for _, m := range MandatoryCategories {
		if m == c {
			return true
		}
	}
	return false
}

// ParseCategory resolves either the current or the legacy section name.
func ParseCategory(name string) (Category, bool) {
	c, ok := categoryByName[name]
	return c, ok
}

// Item is one record inside a category: a flat mapping of string fields.
type Item map[string]string

// Get returns the field value or def when it is missing or blank.
func (it Item) Get(key, def string) string {
	if v, ok := it[key]; ok && v != "" {
		return v
	}
	return def
}

// UnmarshalJSON accepts any JSON object. Scalars are stringified and nested
// values are kept as compact JSON so the record stays flat.
func (it *Item) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("item must be a JSON object")
	}
	out := make(Item, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = t
		case json.Number:
			out[k] = t.String()
		case bool:
			out[k] = strconv.FormatBool(t)
		default:
			b, err := json.Marshal(t)
			if err != nil {
				return err
			}
			out[k] = string(b)
		}
	}
	*it = out
	return nil
}

// StrategicAnalysis holds the categorized output of the analysis stage.
type StrategicAnalysis struct {
	sections map[Category][]Item
}

// NewStrategicAnalysis returns an analysis with every mandatory section present and empty.
func NewStrategicAnalysis() StrategicAnalysis {
	a := StrategicAnalysis{sections: make(map[Category][]Item)}
	a.normalize()
	return a
}

// Items returns the ordered items of a category.
func (a StrategicAnalysis) Items(c Category) []Item {
	return a.sections[c]
}

// With returns a copy of a with the category replaced.
func (a StrategicAnalysis) With(c Category, items ...Item) StrategicAnalysis {
	out := StrategicAnalysis{sections: make(map[Category][]Item, len(a.sections)+1)}
	for k, v := range a.sections {
		out.sections[k] = v
	}
	out.sections[c] = append([]Item(nil), items...)
	out.normalize()
	return out
}

// Has reports whether the category key is present, even when empty.
func (a StrategicAnalysis) Has(c Category) bool {
	_, ok := a.sections[c]
	return ok
}

// Count returns the number of items in a category.
func (a StrategicAnalysis) Count(c Category) int {
	return len(a.sections[c])
}

// Total returns the number of items across all categories.
func (a StrategicAnalysis) Total() int {
	n := 0
	for _, items := range a.sections {
		n += len(items)
	}
	return n
}

// Empty reports whether no category carries any item.
func (a StrategicAnalysis) Empty() bool {
	return a.Total() == 0
}

// Valid reports whether every mandatory section is present.
func (a StrategicAnalysis) Valid() bool {
	for _, c := range MandatoryCategories {
		if !a.Has(c) {
			return false
		}
	}
	return true
}

func (a *StrategicAnalysis) normalize() {
	if a.sections == nil {
		a.sections = make(map[Category][]Item)
	}
	for _, c := range MandatoryCategories {
		if a.sections[c] == nil {
			a.sections[c] = []Item{}
		}
	}
}

// MarshalJSON writes the current schema names. Optional sections are omitted
// when empty.
func (a StrategicAnalysis) MarshalJSON() ([]byte, error) {
	return a.marshal(func(c Category) string { return string(c) })
}

// MarshalLegacy writes the legacy demo schema names.
func (a StrategicAnalysis) MarshalLegacy() ([]byte, error) {
	return a.marshal(Category.LegacyName)
}

func (a StrategicAnalysis) marshal(name func(Category) string) ([]byte, error) {
	a.normalize()
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, c := range AllCategories {
		items, ok := a.sections[c]
		if !ok || (!c.Mandatory() && len(items) == 0) {
			continue
		}
		if items == nil {
			items = []Item{}
		}
		key, _ := json.Marshal(name(c))
		val, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts both the current and the legacy section names. When
// both spellings are present the current one wins. Unknown keys are ignored;
// a known key holding anything other than an array of objects is an error.
func (a *StrategicAnalysis) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*a = NewStrategicAnalysis()
		return nil
	}

	sections := make(map[Category][]Item)
	fromLegacy := make(map[Category]bool)
	for name, val := range raw {
		c, ok := ParseCategory(name)
		if !ok {
			continue
		}
		legacy := name != string(c)
		if _, seen := sections[c]; seen && legacy && !fromLegacy[c] {
			continue
		}
		var items []Item
		if string(val) != "null" {
			if err := json.Unmarshal(val, &items); err != nil {
				return fmt.Errorf("section %s: %w", name, err)
			}
		}
		if items == nil {
			items = []Item{}
		}
		sections[c] = items
		fromLegacy[c] = legacy
	}

	out := StrategicAnalysis{sections: sections}
	out.normalize()
	*a = out
	return nil
}
