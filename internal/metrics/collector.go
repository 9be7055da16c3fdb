package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LiveStats provides the metrics collector access to in-process state.
type LiveStats interface {
	ActiveSessions() int
	RunsInFlight() int
	SSESubscriberCount() int
	DemoRecordCount() int
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
type Collector struct {
	stats LiveStats

	activeSessions *prometheus.Desc
	runsInFlight   *prometheus.Desc
	sseSubscribers *prometheus.Desc
	demoRecords    *prometheus.Desc
}

// NewCollector creates a collector that reads live state at scrape time.
// stats may be nil (metrics will report 0).
func NewCollector(stats LiveStats) *Collector {
	return &Collector{
		stats: stats,
		activeSessions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "sessions_active"),
			"Current number of sessions holding state.",
			nil, nil,
		),
		runsInFlight: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pipeline", "runs_in_flight"),
			"Pipeline runs currently executing.",
			nil, nil,
		),
		sseSubscribers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "sse_subscribers_active"),
			"Current number of SSE subscribers.",
			nil, nil,
		),
		demoRecords: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "demo", "records"),
			"Records in the loaded demo corpus.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeSessions
	ch <- c.runsInFlight
	ch <- c.sseSubscribers
	ch <- c.demoRecords
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var sessions, runs, subs, demo int
	if c.stats != nil {
		sessions = c.stats.ActiveSessions()
		runs = c.stats.RunsInFlight()
		subs = c.stats.SSESubscriberCount()
		demo = c.stats.DemoRecordCount()
	}
	ch <- prometheus.MustNewConstMetric(c.activeSessions, prometheus.GaugeValue, float64(sessions))
	ch <- prometheus.MustNewConstMetric(c.runsInFlight, prometheus.GaugeValue, float64(runs))
	ch <- prometheus.MustNewConstMetric(c.sseSubscribers, prometheus.GaugeValue, float64(subs))
	ch <- prometheus.MustNewConstMetric(c.demoRecords, prometheus.GaugeValue, float64(demo))
}
