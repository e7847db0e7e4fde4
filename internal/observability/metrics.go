package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goliatone/go-library-catalog/catalog"
	"github.com/goliatone/go-library-catalog/readcache"
	"github.com/goliatone/go-library-catalog/sessioncache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "catalog"

// Metrics exports store, read cache and request metrics.
type Metrics struct {
	registry *prometheus.Registry

	identityLookups *prometheus.CounterVec
	writes          *prometheus.CounterVec
	scopes          *prometheus.CounterVec
	scopeDuration   *prometheus.HistogramVec
	readLookups     *prometheus.CounterVec
	invalidations   *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var (
	_ sessioncache.Observer = (*Metrics)(nil)
	_ readcache.Observer    = (*Metrics)(nil)
)

// NewRegistry returns a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewMetrics registers the catalog metrics on registry, or on a fresh
// registry when nil.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		identityLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identity_cache",
			Name:      "lookups_total",
			Help:      "Identity cache lookups by kind and result.",
		}, []string{"kind", "result"}),
		writes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Entity writes by kind and operation.",
		}, []string{"kind", "op"}),
		scopes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scope",
			Name:      "closed_total",
			Help:      "Closed store scopes by outcome.",
		}, []string{"outcome"}),
		scopeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scope",
			Name:      "duration_seconds",
			Help:      "Store scope duration in seconds.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"outcome"}),
		readLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "read_cache",
			Name:      "lookups_total",
			Help:      "Read cache lookups by kind, operation and result.",
		}, []string{"kind", "op", "result"}),
		invalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "read_cache",
			Name:      "invalidated_keys_total",
			Help:      "Read cache keys dropped after writes.",
		}, []string{"kind"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// IdentityLookup implements sessioncache.Observer.
func (m *Metrics) IdentityLookup(kind catalog.Kind, hit bool) {
	m.identityLookups.WithLabelValues(kind.String(), result(hit)).Inc()
}

// EntityWritten implements sessioncache.Observer.
func (m *Metrics) EntityWritten(kind catalog.Kind, op sessioncache.WriteOp) {
	m.writes.WithLabelValues(kind.String(), string(op)).Inc()
}

// ScopeClosed implements sessioncache.Observer.
func (m *Metrics) ScopeClosed(outcome sessioncache.Outcome, elapsed time.Duration) {
	m.scopes.WithLabelValues(string(outcome)).Inc()
	m.scopeDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

// ReadCacheLookup implements readcache.Observer.
func (m *Metrics) ReadCacheLookup(kind catalog.Kind, op string, hit bool) {
	m.readLookups.WithLabelValues(kind.String(), op, result(hit)).Inc()
}

// ReadCacheInvalidated implements readcache.Observer.
func (m *Metrics) ReadCacheInvalidated(kind catalog.Kind, keys int) {
	m.invalidations.WithLabelValues(kind.String()).Add(float64(keys))
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
