// Package metrics counts pipeline outcomes and writes them in the Prometheus text format.
//
// A nil [*Collector] is valid and records nothing, so callers never need to check whether metrics are enabled.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "spoti"

// Outcome labels.
const (
	Passed  = "passed"
	Failed  = "failed"
	Skipped = "skipped"
)

// Collector holds one registry per run.
type Collector struct {
	registry *prometheus.Registry
	items    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    prometheus.Counter
	tracks   prometheus.Gauge
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_items_total",
			Help:      "Items handled by each pipeline stage, by outcome.",
		}, []string{"stage", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent on a single item in each pipeline stage.",
			Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_bytes_total",
			Help:      "Bytes written to working files.",
		}),
		tracks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracks",
			Help:      "Tracks in the current run.",
		}),
	}
	c.registry.MustRegister(c.items, c.duration, c.bytes, c.tracks)
	return c
}

// Observe records one item leaving stage with outcome after d.
func (c *Collector) Observe(stage, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.items.WithLabelValues(stage, outcome).Inc()
	if outcome != Skipped {
		c.duration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

func (c *Collector) AddBytes(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.bytes.Add(float64(n))
}

func (c *Collector) SetTracks(n int) {
	if c == nil {
		return
	}
	c.tracks.Set(float64(n))
}

// Registry exposes the underlying registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// WriteTextfile writes every metric to path for the node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
