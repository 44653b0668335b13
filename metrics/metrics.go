/* SPDX-License-Identifier: BSD-2-Clause */

// Package metrics provides a Prometheus implementation of httpio.Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ricardobranco777/httpio"
)

// Collector records read engine events as Prometheus metrics.
type Collector struct {
	fetches       *prometheus.CounterVec
	fetchBytes    prometheus.Counter
	fetchDuration prometheus.Histogram
	sectors       *prometheus.CounterVec
	flushes       prometheus.Counter
}

// New registers the collector's metrics with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpio_fetches_total",
				Help: "Total number of raw range fetches by status",
			},
			[]string{"status"}, // "ok", "error"
		),
		fetchBytes: f.NewCounter(
			prometheus.CounterOpts{
				Name: "httpio_fetch_bytes_total",
				Help: "Total bytes returned by successful raw fetches",
			},
		),
		fetchDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name: "httpio_fetch_duration_milliseconds",
				Help: "Duration of raw range fetches in milliseconds",
				Buckets: []float64{
					1,    // local or cached by a proxy
					5,    // 5ms
					10,   // 10ms
					50,   // 50ms
					100,  // 100ms
					500,  // 500ms
					1000, // 1s
					5000, // 5s - large runs over slow links
				},
			},
		),
		sectors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpio_sector_lookups_total",
				Help: "Sector cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss"
		),
		flushes: f.NewCounter(
			prometheus.CounterOpts{
				Name: "httpio_cache_flushes_total",
				Help: "Total number of sector cache flushes",
			},
		),
	}
}

// ObserveFetch records one raw fetch.
func (c *Collector) ObserveFetch(n int64, d time.Duration, err error) {
	if err != nil {
		c.fetches.WithLabelValues("error").Inc()
		return
	}
	c.fetches.WithLabelValues("ok").Inc()
	c.fetchBytes.Add(float64(n))
	c.fetchDuration.Observe(float64(d.Microseconds()) / 1000)
}

// ObserveSectors records cache hits and misses of one read.
func (c *Collector) ObserveSectors(hits, misses int) {
	c.sectors.WithLabelValues("hit").Add(float64(hits))
	c.sectors.WithLabelValues("miss").Add(float64(misses))
}

// ObserveFlush records a cache flush.
func (c *Collector) ObserveFlush() {
	c.flushes.Inc()
}

var _ httpio.Metrics = (*Collector)(nil)
