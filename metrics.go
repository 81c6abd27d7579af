package larder

// Metrics receives cache lifecycle events. Implementations must be safe
// for concurrent use. See pkg/prometheus for a Prometheus-backed recorder.
type Metrics interface {
	// Hit is called when a read returns a fresh value.
	Hit()

	// Miss is called when a read finds no usable value.
	Miss()

	// Stale is called when a stale value is served after a fetch failure.
	Stale()

	// Expired is called for every entry evicted because its TTL elapsed,
	// whether lazily on read or by the sweep.
	Expired()
}

// NoopMetrics is a Metrics implementation that does nothing. It is the
// default, so callers that do not care about metrics never deal with nil
// checks.
type NoopMetrics struct{}

func (NoopMetrics) Hit()     {}
func (NoopMetrics) Miss()    {}
func (NoopMetrics) Stale()   {}
func (NoopMetrics) Expired() {}

var _ Metrics = NoopMetrics{}
