// Package metrics exposes per-pass inspection statistics in the Prometheus
// format, either over HTTP in watch mode or as a node_exporter textfile.
//
// Recording methods, Encode and WriteTextfile are safe on a nil *Collector so
// callers can run without metrics. Handler and Router need a real collector.
package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

const namespace = "cv"

// Collector holds the metrics of the inspection pipeline
type Collector struct {
	registry *prometheus.Registry

	passes       prometheus.Counter
	passDuration prometheus.Histogram
	matched      prometheus.Gauge
	inspected    prometheus.Counter
	skipped      *prometheus.CounterVec
	truncations  *prometheus.CounterVec
	progress     *prometheus.GaugeVec
	lastPass     prometheus.Gauge
}

// New creates a collector with its own registry
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Completed inspection passes.",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Wall time of one inspection pass.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		matched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "matched_processes",
			Help:      "Processes matching the watch-list in the last pass.",
		}),
		inspected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "descriptors_inspected_total",
			Help:      "Descriptors successfully resolved to a backing file.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_total",
			Help:      "Items skipped because they changed or vanished during inspection.",
		}, []string{"scope"}),
		truncations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "truncations_total",
			Help:      "Results cut short by a capacity limit.",
		}, []string{"kind"}),
		progress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transfer_progress_percent",
			Help:      "Progress of the active transfer per process; not clamped to 0-100.",
		}, []string{"pid", "command", "path"}),
		lastPass: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_pass_timestamp_seconds",
			Help:      "Unix time the last pass finished.",
		}),
	}

	c.registry.MustRegister(
		c.passes,
		c.passDuration,
		c.matched,
		c.inspected,
		c.skipped,
		c.truncations,
		c.progress,
		c.lastPass,
	)
	return c
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// BeginPass clears per-pass series so exited processes disappear
func (c *Collector) BeginPass() {
	if c == nil {
		return
	}
	c.progress.Reset()
}

// EndPass records a finished pass
func (c *Collector) EndPass(duration time.Duration, matched int) {
	if c == nil {
		return
	}
	c.passes.Inc()
	c.passDuration.Observe(duration.Seconds())
	c.matched.Set(float64(matched))
	c.lastPass.SetToCurrentTime()
}

// Inspected counts a resolved descriptor
func (c *Collector) Inspected() {
	if c == nil {
		return
	}
	c.inspected.Inc()
}

// Skipped counts n items dropped at the given scope
func (c *Collector) Skipped(scope string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.skipped.WithLabelValues(scope).Add(float64(n))
}

// Truncated counts a capacity truncation of the given kind ("processes", "descriptors")
func (c *Collector) Truncated(kind string) {
	if c == nil {
		return
	}
	c.truncations.WithLabelValues(kind).Inc()
}

// Progress sets the progress gauge of one process
func (c *Collector) Progress(pid int, command, path string, percent float64) {
	if c == nil {
		return
	}
	c.progress.WithLabelValues(strconv.Itoa(pid), command, path).Set(percent)
}

// Handler serves the registry in the exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Router returns the HTTP routes for watch mode. With a nil health tracker
// /healthz always answers ok.
func (c *Collector) Router(health *Health) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", c.Handler()).Methods(http.MethodGet)
	if health != nil {
		r.Handle("/healthz", health).Methods(http.MethodGet)
		return r
	}
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}).Methods(http.MethodGet)
	return r
}

// Encode writes the current metrics in the text exposition format
func (c *Collector) Encode() ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	families, err := c.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return nil, fmt.Errorf("failed to encode metric %s: %w", mf.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}

// WriteTextfile writes the metrics to path for node_exporter's textfile
// collector. The file is replaced atomically so a scrape never sees half of it.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
