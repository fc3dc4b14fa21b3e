package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects and exposes migration metrics. Metrics live on a
// collector-local registry so independent runs never collide.
type Collector struct {
	registry        *prometheus.Registry
	objectsTotal    *prometheus.CounterVec
	bytesTotal      prometheus.Counter
	inflightWorkers prometheus.Gauge
	duration        prometheus.Histogram
	attempts        prometheus.Histogram
}

// New creates a new metrics collector.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		objectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "migrate_objects_total",
				Help: "Total number of objects processed",
			},
			[]string{"status"},
		),
		bytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "migrate_bytes_total",
				Help: "Total bytes migrated",
			},
		),
		inflightWorkers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "migrate_inflight_workers",
				Help: "Number of workers currently processing",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "migrate_object_duration_seconds",
				Help:    "Time taken to migrate an object",
				Buckets: prometheus.DefBuckets,
			},
		),
		attempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "migrate_object_attempts",
				Help:    "Attempts used per migrated object",
				Buckets: []float64{1, 2, 3, 4, 5, 8, 10},
			},
		),
	}

	c.registry.MustRegister(c.objectsTotal)
	c.registry.MustRegister(c.bytesTotal)
	c.registry.MustRegister(c.inflightWorkers)
	c.registry.MustRegister(c.duration)
	c.registry.MustRegister(c.attempts)

	return c
}

// IncSucceeded increments the succeeded object counter and bytes total.
func (c *Collector) IncSucceeded(bytes int64) {
	c.objectsTotal.WithLabelValues("succeeded").Inc()
	c.bytesTotal.Add(float64(bytes))
}

// IncFailed increments the failed object counter.
func (c *Collector) IncFailed() {
	c.objectsTotal.WithLabelValues("failed").Inc()
}

// IncInflight marks one more worker as busy.
func (c *Collector) IncInflight() {
	c.inflightWorkers.Inc()
}

// DecInflight marks one worker as idle.
func (c *Collector) DecInflight() {
	c.inflightWorkers.Dec()
}

// ObserveDuration observes one object's end-to-end migration duration.
func (c *Collector) ObserveDuration(duration time.Duration) {
	c.duration.Observe(duration.Seconds())
}

// ObserveAttempts observes the attempts used for one object.
func (c *Collector) ObserveAttempts(n int) {
	c.attempts.Observe(float64(n))
}

// StartServer starts the metrics HTTP server. It blocks.
func (c *Collector) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
