package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nao1215/sitescrape/internal/fetcher"
)

const namespace = "sitescrape"

// Page results used as the "result" label.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Fetch failure reasons used as the "reason" label.
const (
	ReasonStatus    = "status"
	ReasonTimeout   = "timeout"
	ReasonTransport = "transport"
)

// Recorder collects crawl metrics into its own registry.
//
// Design decision: Each Recorder owns a private registry instead of using
// the global default one, so that tests and batch runs can create as many
// recorders as they need without duplicate registration panics.
type Recorder struct {
	registry *prometheus.Registry

	pages            *prometheus.CounterVec
	fetchFailures    *prometheus.CounterVec
	fetchDuration    prometheus.Histogram
	linksEnqueued    prometheus.Counter
	extractionErrors *prometheus.CounterVec
	frontierSize     prometheus.Gauge
}

// NewRecorder creates a Recorder with all metrics registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		pages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Pages visited, by fetch result.",
		}, []string{"result"}),
		fetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Failed fetches, by reason.",
		}, []string{"reason"}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of successful fetches, politeness delay excluded.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		linksEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_enqueued_total",
			Help:      "New URLs added to the frontier.",
		}),
		extractionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_errors_total",
			Help:      "Fields that could not be extracted because of a malformed selector.",
		}, []string{"field"}),
		frontierSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontier_size",
			Help:      "URLs waiting in the frontier.",
		}),
	}
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// PageFetched records a successful fetch.
func (r *Recorder) PageFetched(_ string, took time.Duration) {
	r.pages.WithLabelValues(ResultOK).Inc()
	r.fetchDuration.Observe(took.Seconds())
}

// PageFailed records a failed fetch and classifies its cause.
func (r *Recorder) PageFailed(_ string, err error) {
	r.pages.WithLabelValues(ResultFailed).Inc()
	r.fetchFailures.WithLabelValues(FailureReason(err)).Inc()
}

// FieldFailed records a field whose selector could not be evaluated.
func (r *Recorder) FieldFailed(field string) {
	r.extractionErrors.WithLabelValues(field).Inc()
}

// LinksEnqueued records newly queued URLs.
func (r *Recorder) LinksEnqueued(n int) {
	if n > 0 {
		r.linksEnqueued.Add(float64(n))
	}
}

// FrontierSize records the current queue length.
func (r *Recorder) FrontierSize(n int) {
	r.frontierSize.Set(float64(n))
}

// FailureReason maps a fetch error to a "reason" label value.
func FailureReason(err error) string {
	var fetchErr *fetcher.FetchError
	if errors.As(err, &fetchErr) {
		switch {
		case fetchErr.Timeout():
			return ReasonTimeout
		case fetchErr.StatusCode != 0:
			return ReasonStatus
		}
	}
	return ReasonTransport
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
// The file is written atomically so node-exporter never reads a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
