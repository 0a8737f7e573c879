// ABOUTME: Prometheus metrics for cookie operations and jar supply
// ABOUTME: Recorder observes dispatcher outcomes; Handler exposes the registry over HTTP

package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/2389/cookie-jar/internal/dispatch"
)

const namespace = "cookie_jar"

// Recorder collects cookie metrics into its own registry.
type Recorder struct {
	registry    *prometheus.Registry
	operations  *prometheus.CounterVec
	reflections *prometheus.CounterVec
	collected   prometheus.Gauge
	available   prometheus.Gauge
	rateLimited prometheus.Counter
}

// NewRecorder creates a Recorder with Go runtime and process collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Dispatched cookie operations by tool, acceptance, and error kind.",
		}, []string{"operation", "accepted", "error"}),
		reflections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reflections_total",
			Help:      "Self-reflections by claimed quality and whether a cookie was awarded.",
		}, []string{"quality", "awarded"}),
		collected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collected",
			Help:      "Cookies collected since the last reset.",
		}),
		available: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "available",
			Help:      "Cookies left in the jar.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "HTTP requests rejected by the rate limiter.",
		}),
	}

	r.registry.MustRegister(
		r.operations,
		r.reflections,
		r.collected,
		r.available,
		r.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// SetSupply records the jar counts outside of a dispatched operation,
// such as at startup.
func (r *Recorder) SetSupply(collected, available int) {
	r.collected.Set(float64(collected))
	r.available.Set(float64(available))
}

// Observe records a dispatcher outcome. It satisfies dispatch.Observer.
func (r *Recorder) Observe(_ context.Context, o *dispatch.Outcome) error {
	r.operations.WithLabelValues(o.Operation, boolLabel(o.Accepted), o.ErrorKind()).Inc()
	if o.Operation == dispatch.ToolReflectAndReward {
		r.reflections.WithLabelValues(string(o.Quality), boolLabel(o.Accepted)).Inc()
	}
	r.SetSupply(o.Snapshot.Collected, o.Snapshot.Available)
	return nil
}

// RateLimited counts one request rejected by the rate limiter.
func (r *Recorder) RateLimited() {
	r.rateLimited.Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
