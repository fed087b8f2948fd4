package api

import (
	"props-bible/core/labels"
	"props-bible/core/subscription"

	"github.com/prometheus/client_golang/prometheus"
)

type workersMetricsCollector struct {
	reconciler *subscription.Reconciler

	ticksTotalDesc      *prometheus.Desc
	tickErrorsTotalDesc *prometheus.Desc
	lastTickDesc        *prometheus.Desc
}

func newWorkersMetricsCollector(reconciler *subscription.Reconciler) prometheus.Collector {
	return &workersMetricsCollector{
		reconciler: reconciler,
		ticksTotalDesc: prometheus.NewDesc(
			"props_worker_ticks_total",
			"Total number of scheduler/worker ticks.",
			[]string{"worker"},
			nil,
		),
		tickErrorsTotalDesc: prometheus.NewDesc(
			"props_worker_tick_errors_total",
			"Total number of scheduler/worker tick errors.",
			[]string{"worker"},
			nil,
		),
		lastTickDesc: prometheus.NewDesc(
			"props_worker_last_tick_timestamp",
			"Unix timestamp of the last scheduler/worker tick.",
			[]string{"worker"},
			nil,
		),
	}
}

func (c *workersMetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ticksTotalDesc
	ch <- c.tickErrorsTotalDesc
	ch <- c.lastTickDesc
}

func (c *workersMetricsCollector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.reconciler == nil {
		return
	}
	s := c.reconciler.StatsSnapshot()
	ch <- prometheus.MustNewConstMetric(c.ticksTotalDesc, prometheus.CounterValue, float64(s.TicksTotal), "limits_reconciler")
	ch <- prometheus.MustNewConstMetric(c.tickErrorsTotalDesc, prometheus.CounterValue, float64(s.TickErrorsTotal), "limits_reconciler")
	if s.LastTickAtUTC != nil {
		ch <- prometheus.MustNewConstMetric(c.lastTickDesc, prometheus.GaugeValue, float64(s.LastTickAtUTC.UTC().Unix()), "limits_reconciler")
	}
}

type labelsMetricsCollector struct {
	gen *labels.Generator

	hitsDesc   *prometheus.Desc
	missesDesc *prometheus.Desc
	sizeDesc   *prometheus.Desc
}

func newLabelsMetricsCollector(gen *labels.Generator) prometheus.Collector {
	return &labelsMetricsCollector{
		gen:        gen,
		hitsDesc:   prometheus.NewDesc("props_label_cache_hits_total", "QR label cache hits.", nil, nil),
		missesDesc: prometheus.NewDesc("props_label_cache_misses_total", "QR label cache misses.", nil, nil),
		sizeDesc:   prometheus.NewDesc("props_label_cache_entries", "QR labels currently cached.", nil, nil),
	}
}

func (c *labelsMetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hitsDesc
	ch <- c.missesDesc
	ch <- c.sizeDesc
}

func (c *labelsMetricsCollector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.gen == nil {
		return
	}
	st := c.gen.Stats()
	ch <- prometheus.MustNewConstMetric(c.hitsDesc, prometheus.CounterValue, float64(st.Hits))
	ch <- prometheus.MustNewConstMetric(c.missesDesc, prometheus.CounterValue, float64(st.Misses))
	ch <- prometheus.MustNewConstMetric(c.sizeDesc, prometheus.GaugeValue, float64(st.Size))
}
