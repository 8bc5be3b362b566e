// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exports poll-cycle and detection counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"grimm.is/scanwall/internal/firewall"
)

const namespace = "scanwall"

// Metrics holds all scanwall Prometheus metrics
type Metrics struct {
	NewConnections prometheus.Counter
	Established    prometheus.Gauge
	Snapshots      prometheus.Gauge
	ScansDetected  prometheus.Counter
	Blocks         *prometheus.CounterVec
	DecodeErrors   prometheus.Counter
	ReadErrors     prometheus.Counter
	Cycles         prometheus.Counter
	PollDuration   prometheus.Histogram
	BlockedPeers   prometheus.GaugeFunc
}

// NewMetrics creates the metric set. blockedPeers is sampled on every scrape
// and may be nil.
func NewMetrics(blockedPeers func() int) *Metrics {
	if blockedPeers == nil {
		blockedPeers = func() int { return 0 }
	}
	m := &Metrics{
		NewConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_connections_total",
			Help:      "Established connections seen for the first time",
		}),
		Established: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "established_connections",
			Help:      "Established non-loopback connections in the last poll",
		}),
		Snapshots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_snapshots",
			Help:      "Snapshots currently retained in the detection window",
		}),
		ScansDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_detected_total",
			Help:      "Peers flagged as port scanners",
		}),
		Blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_total",
			Help:      "Block attempts by outcome",
		}, []string{"outcome"}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Poll cycles aborted by a malformed connection table",
		}),
		ReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_errors_total",
			Help:      "Failed or empty reads of the connection table",
		}),
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Completed poll cycles",
		}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Time spent in one read, decode and evaluate cycle",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		BlockedPeers: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "blocked_peers",
			Help:      "Peers flagged since process start",
		}, func() float64 { return float64(blockedPeers()) }),
	}
	for _, o := range firewall.Outcomes() {
		m.Blocks.WithLabelValues(o.String())
	}
	return m
}

func (m *Metrics) all() []prometheus.Collector {
	return []prometheus.Collector{
		m.NewConnections, m.Established, m.Snapshots, m.ScansDetected, m.Blocks,
		m.DecodeErrors, m.ReadErrors, m.Cycles, m.PollDuration, m.BlockedPeers,
	}
}

// Describe implements prometheus.Collector
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.all() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.all() {
		c.Collect(ch)
	}
}

// NewRegistry returns a registry holding m plus the Go and process collectors.
func NewRegistry(m *Metrics) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(m)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// ObserveCycle records one completed poll cycle.
func (m *Metrics) ObserveCycle(established, newConns, snapshots int, took time.Duration) {
	m.Cycles.Inc()
	m.Established.Set(float64(established))
	m.NewConnections.Add(float64(newConns))
	m.Snapshots.Set(float64(snapshots))
	m.PollDuration.Observe(took.Seconds())
}

// ObserveBlock records a flagged peer and the outcome of blocking it.
func (m *Metrics) ObserveBlock(o firewall.Outcome) {
	m.ScansDetected.Inc()
	m.Blocks.WithLabelValues(o.String()).Inc()
}
