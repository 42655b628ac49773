package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sitemap_scraper"

// Metrics holds the crawl and pipeline collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	pagesTotal      *prometheus.CounterVec
	queueLength     prometheus.Gauge
	politenessDelay prometheus.Histogram

	tasksTotal     *prometheus.CounterVec
	renderDuration prometheus.Histogram
	inFlight       prometheus.Gauge
	batchesTotal   prometheus.Counter
	collisions     prometheus.Counter
}

// New registers all collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		pagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "crawl",
				Name:      "pages_total",
				Help:      "Pages attempted by the frontier, by outcome.",
			},
			[]string{"status", "error_type"},
		),
		queueLength: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "crawl",
				Name:      "queue_length",
				Help:      "URLs waiting in the frontier queue.",
			},
		),
		politenessDelay: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "crawl",
				Name:      "politeness_delay_seconds",
				Help:      "Delay slept before each crawl request.",
				Buckets:   []float64{0.25, 0.5, 0.75, 1, 1.25, 1.5, 2, 5},
			},
		),
		tasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fetch",
				Name:      "tasks_total",
				Help:      "Pipeline fetch tasks, by outcome.",
			},
			[]string{"status", "error_type"},
		),
		renderDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "fetch",
				Name:      "render_duration_seconds",
				Help:      "Time to render one page to Markdown.",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
			},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "fetch",
				Name:      "in_flight",
				Help:      "Render tasks currently running.",
			},
		),
		batchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fetch",
				Name:      "batches_total",
				Help:      "Batches completed by the pipeline.",
			},
		),
		collisions: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fetch",
				Name:      "filename_collisions_total",
				Help:      "Distinct URLs that mapped to an already used output filename.",
			},
		),
	}
}

// Handler serves the collectors gathered by g in the Prometheus text format
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) PageAttempted(status, errorType string) {
	if m == nil {
		return
	}
	m.pagesTotal.WithLabelValues(status, errorType).Inc()
}

func (m *Metrics) SetQueueLength(n int) {
	if m == nil {
		return
	}
	m.queueLength.Set(float64(n))
}

func (m *Metrics) ObservePolitenessDelay(d time.Duration) {
	if m == nil {
		return
	}
	m.politenessDelay.Observe(d.Seconds())
}

func (m *Metrics) TaskFinished(status, errorType string) {
	if m == nil {
		return
	}
	m.tasksTotal.WithLabelValues(status, errorType).Inc()
}

func (m *Metrics) ObserveRender(d time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(d.Seconds())
}

// TaskStarted and TaskDone bracket one running render
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) TaskDone() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

func (m *Metrics) BatchCompleted() {
	if m == nil {
		return
	}
	m.batchesTotal.Inc()
}

func (m *Metrics) FilenameCollision() {
	if m == nil {
		return
	}
	m.collisions.Inc()
}
