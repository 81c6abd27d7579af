// Package prometheus exports cache metrics to Prometheus. [Recorder]
// implements the cache's Metrics interface with four counters (hits,
// misses, stale fallbacks, expiries) on a private registry, so wiring it
// in never collides with the host application's collectors.
//
//	rec := prometheus.NewRecorder("")
//	c, err := larder.New[User](dur, nil, larder.WithMetrics(rec))
//	...
//	mux.Handle("/metrics", rec.Handler())
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/larder"
)

// Recorder counts cache events in Prometheus counters.
type Recorder struct {
	registry *prometheus.Registry
	hits     prometheus.Counter
	misses   prometheus.Counter
	stale    prometheus.Counter
	expired  prometheus.Counter
}

var _ larder.Metrics = (*Recorder)(nil)

// NewRecorder creates a recorder with its own registry. An empty
// namespace defaults to "larder".
func NewRecorder(namespace string) *Recorder {
	if namespace == "" {
		namespace = "larder"
	}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses.",
		}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_stale_fallbacks_total",
			Help:      "Total number of stale values served after fetch failures.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_expired_total",
			Help:      "Total number of entries dropped after TTL expiry.",
		}),
	}
	r.registry.MustRegister(r.hits, r.misses, r.stale, r.expired)

	return r
}

// Hit counts a fast- or durable-tier hit.
func (r *Recorder) Hit() { r.hits.Inc() }

// Miss counts a lookup that found no live entry.
func (r *Recorder) Miss() { r.misses.Inc() }

// Stale counts a stale value served after a failed fetch.
func (r *Recorder) Stale() { r.stale.Inc() }

// Expired counts an entry dropped after TTL expiry.
func (r *Recorder) Expired() { r.expired.Inc() }

// Registry returns the recorder's private registry, for callers that
// aggregate it into their own exposition.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's metrics in Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
