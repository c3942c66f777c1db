package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "blog_admin"

// Registration paths.
const (
	PathPassword = "password"
	PathProvider = "provider"
)

// Registration results.
const (
	ResultSuccess = "success"
	ResultInvalid = "invalid"
	ResultBusy    = "busy"
	ResultError   = "error"
)

// Registry owns the collectors exported by the admin console. A nil *Registry
// is valid and records nothing.
type Registry struct {
	reg             *prometheus.Registry
	registrations   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New builds a Registry with its own prometheus registry so tests and
// multiple servers in one process do not collide.
func New(namespace string) *Registry {
	if namespace == "" {
		namespace = defaultNamespace
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registration_attempts_total",
			Help:      "Registration submissions by path and result.",
		}, []string{"path", "result"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveRegistration counts one registration attempt.
func (r *Registry) ObserveRegistration(path, result string) {
	if r == nil {
		return
	}
	r.registrations.WithLabelValues(path, result).Inc()
}

// ObserveRequest records the latency of a served request.
func (r *Registry) ObserveRequest(route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.requestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Gatherer exposes the underlying registry for scraping and tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}
