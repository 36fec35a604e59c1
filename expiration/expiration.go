// This file defines how cache entries expire over time.

package expiration

import (
	"fmt"
	"strings"
	"time"
)

type kind uint8

const (
	never kind = iota
	after
	at
)

/*
Expiry describes when an entry stops being visible.

There are three forms:
  - Never():   the entry only leaves the cache through removal or eviction
  - After(d):  the entry expires d after it is written
  - At(t):     the entry expires at an absolute wall-clock time

The zero value is Never().
*/
type Expiry struct {
	kind kind
	ttl  time.Duration
	at   time.Time
}

// Never returns an expiry that never fires.
func Never() Expiry { return Expiry{} }

// After returns an expiry relative to the moment of the write.
// A non-positive d produces an entry that is already expired.
func After(d time.Duration) Expiry { return Expiry{kind: after, ttl: d} }

// At returns an absolute expiry.
func At(t time.Time) Expiry { return Expiry{kind: at, at: t} }

// IsNever reports whether the expiry never fires.
func (e Expiry) IsNever() bool { return e.kind == never }

/*
Deadline resolves the expiry against the time of the write.
A zero time.Time means "never".
*/
func (e Expiry) Deadline(now time.Time) time.Time {
	switch e.kind {
	case after:
		return now.Add(e.ttl)
	case at:
		return e.at
	default:
		return time.Time{}
	}
}

// IsExpired reports whether a resolved deadline has passed at now.
func IsExpired(deadline, now time.Time) bool {
	return !deadline.IsZero() && !now.Before(deadline)
}

func (e Expiry) String() string {
	switch e.kind {
	case after:
		return e.ttl.String()
	case at:
		return e.at.UTC().Format(time.RFC3339)
	default:
		return "never"
	}
}

/*
Parse reads the textual form used by configuration and the CLI:
"never" (or empty), a Go duration such as "90s", or an RFC 3339 timestamp.
*/
func Parse(s string) (Expiry, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "never") {
		return Never(), nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return After(d), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return At(t), nil
	}
	return Expiry{}, fmt.Errorf("invalid expiry %q: want \"never\", a duration or an RFC 3339 time", s)
}

// MarshalText implements encoding.TextMarshaler.
func (e Expiry) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so Expiry can be read from env and YAML.
func (e *Expiry) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
