package cache

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/krisalay/tiered-cache/codec"
	"github.com/krisalay/tiered-cache/refresh"
	"github.com/krisalay/tiered-cache/types"
)

// Option customizes a Cache beyond what config.Config covers.
type Option[T any] func(*options[T])

type options[T any] struct {
	codec   codec.Codec[T]
	logger  *log.Logger
	metrics types.Metrics
	now     func() time.Time
	hook    refresh.Hook[T]
	detach  bool
}

func defaultOptions[T any]() options[T] {
	return options[T]{
		codec:   codec.JSON[T]{},
		logger:  log.Default().WithPrefix("tiered-cache"),
		metrics: types.NoopMetrics{},
		now:     time.Now,
	}
}

// WithCodec replaces the default JSON codec.
func WithCodec[T any](c codec.Codec[T]) Option[T] {
	return func(o *options[T]) { o.codec = c }
}

// WithLogger sets the logger for background work and swallowed failures.
func WithLogger[T any](l *log.Logger) Option[T] {
	return func(o *options[T]) { o.logger = l }
}

// WithMetrics receives hit, miss, eviction, expiration and promotion events.
func WithMetrics[T any](m types.Metrics) Option[T] {
	return func(o *options[T]) { o.metrics = m }
}

// WithClock replaces time.Now for expiry and recency decisions.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(o *options[T]) { o.now = now }
}

// WithReadHook calls h after every lookup that returns a live entry.
func WithReadHook[T any](h refresh.Hook[T]) Option[T] {
	return func(o *options[T]) { o.hook = h }
}

// WithDetachedValues makes Set keep a decoded copy of the value in memory, so later
// changes to the caller's value cannot reach the cache. Each Set pays one extra
// encode and decode.
func WithDetachedValues[T any]() Option[T] {
	return func(o *options[T]) { o.detach = true }
}
