package present

import "github.com/snarg/meeting-intel/internal/meeting"

// Overview is the corpus-level metrics strip.
type Overview struct {
	Meetings      int `json:"meetings"`
	Insights      int `json:"insights"`
	Opportunities int `json:"opportunities"`
	Themes        int `json:"themes"`
	Decisions     int `json:"decisions"`
	WeakSignals   int `json:"weak_signals"`
}

// Summarize counts meetings and category items across records.
func Summarize(records []*meeting.Record) Overview {
	o := Overview{Meetings: len(records)}
	for _, r := range records {
		a := r.Analysis
		o.Insights += a.Count(meeting.StrategicInsights)
		o.Opportunities += a.Count(meeting.InnovationOpportunities)
		o.Themes += a.Count(meeting.RecurringThemes)
		o.Decisions += a.Count(meeting.DecisionsMade)
		o.WeakSignals += a.Count(meeting.WeakSignals)
	}
	return o
}
