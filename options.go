package larder

import (
	"io"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Option configures a Cache or Store.
type Option func(*options)

type options struct {
	logger           *slog.Logger
	metrics          Metrics
	keyPrefix        string
	sweepSchedule    string
	defaultTTL       time.Duration
	sweepInterval    time.Duration
	sweepIntervalSet bool
}

func defaultOptions() *options {
	return &options{
		defaultTTL:    time.Hour,
		sweepInterval: time.Minute,
		keyPrefix:     "cache_",
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:       NoopMetrics{},
	}
}

// WithDefaultTTL sets the TTL applied when GetOrFetch or Preload is called
// with a zero TTL.
// Default: 1 hour.
func WithDefaultTTL(d time.Duration) Option {
	return func(o *options) {
		o.defaultTTL = d
	}
}

// WithSweepInterval sets how often the background sweeper evicts expired
// entries. Zero disables the background sweeper; Sweep can still be called
// directly. Mutually exclusive with WithSweepSchedule.
// Default: 1 minute.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) {
		o.sweepInterval = d
		o.sweepIntervalSet = true
	}
}

// WithSweepSchedule runs the background sweeper on a cron schedule
// (standard five-field syntax, minute precision) instead of a fixed
// interval. Mutually exclusive with WithSweepInterval.
func WithSweepSchedule(expr string) Option {
	return func(o *options) {
		o.sweepSchedule = expr
	}
}

// WithKeyPrefix sets the namespace prefix for durable records. Records are
// persisted as "{prefix}{key}". The prefix is the sole isolation mechanism
// when the durable tier is shared; with an empty prefix, ClearAll removes
// every record the durable tier holds.
// Default: "cache_".
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.keyPrefix = prefix
	}
}

// WithLogger sets the logger used for durable-tier degradations and
// stale-serve warnings.
// Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
// Default: NoopMetrics.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// parseSweepSchedule parses a five-field cron expression.
func parseSweepSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}
