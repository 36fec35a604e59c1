package engine

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/krisalay/tiered-cache/expiration"
	"github.com/krisalay/tiered-cache/types"
)

/*
Engine is the policy layer shared by the cache and its tiers.
It is responsible for the "rules" of the cache, NOT storage.

It decides:
  - What "now" is (the clock)
  - Which deadline a write gets when the caller passes no expiry
  - Where events are reported (metrics)
  - What happens to failures the cache chooses not to surface (logging)

It does NOT:
  - Store data
  - Lock anything
  - Decide eviction order
*/
type Engine struct {

	// DefaultExpiry applies to writes that do not carry their own expiry.
	DefaultExpiry expiration.Expiry

	// Now is the clock. Tests replace it to move time without sleeping.
	Now func() time.Time

	// Metrics records hits, misses, evictions, expirations and promotions.
	Metrics types.Metrics

	// Logger receives best-effort failures that are swallowed instead of returned.
	Logger *log.Logger
}

/*
New creates an Engine. nil arguments fall back to time.Now, NoopMetrics and
the default logger, so callers never need nil checks.
*/
func New(def expiration.Expiry, now func() time.Time, metrics types.Metrics, logger *log.Logger) *Engine {
	if now == nil {
		now = time.Now
	}
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{DefaultExpiry: def, Now: now, Metrics: metrics, Logger: logger}
}

// Deadline resolves exp, or the default expiry when exp is nil, against the current time.
func (e *Engine) Deadline(exp *expiration.Expiry) time.Time {
	if exp == nil {
		return e.DefaultExpiry.Deadline(e.Now())
	}
	return exp.Deadline(e.Now())
}

/*
Swallow records a failure of a best-effort step, such as a memory write after a
successful disk write. The step's failure never changes the operation's result.
*/
func (e *Engine) Swallow(op, key string, err error) {
	if err == nil {
		return
	}
	e.Logger.Debug("Ignoring best-effort failure", "op", op, "key", key, "err", err)
}

// OnLookup reports the outcome of a read.
func (e *Engine) OnLookup(found bool) {
	if found {
		e.Metrics.Hit()
	} else {
		e.Metrics.Miss()
	}
}
