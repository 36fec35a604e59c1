package types

import (
	"errors"
	"fmt"
	"strings"
)

/*
Error kinds returned by the cache and its tiers.

Every failure carries one of these sentinels, so callers can branch with errors.Is
without caring which tier produced it. A missing key is NOT an error: lookups report
absence through their boolean result.
*/
var (
	// ErrEncoding means a value could not be turned into bytes by the codec.
	ErrEncoding = errors.New("encoding failed")

	// ErrDecoding means stored bytes are malformed or do not fit the requested type.
	ErrDecoding = errors.New("decoding failed")

	// ErrStorageRead is an I/O failure while reading the disk tier.
	ErrStorageRead = errors.New("storage read failed")

	// ErrStorageWrite is an I/O failure while writing or deleting in the disk tier.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrCacheWrite means a Set was aborted because the durable tier rejected it.
	// The memory tier is left untouched when this is returned.
	ErrCacheWrite = errors.New("cache write failed")

	// ErrCacheRead means a lookup failed for a reason other than absence.
	ErrCacheRead = errors.New("cache read failed")

	// ErrItemTooLarge is returned when a single entry exceeds a tier limit.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrInvalidKey is returned for empty keys.
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrClosed is returned by operations submitted after Close.
	ErrClosed = errors.New("cache closed")
)

// Error decorates a failure with the kind, the operation and the key involved.
type Error struct {
	Kind error
	Op   string
	Key  string
	Err  error
}

// NewError builds an *Error. err may be nil when the kind says everything.
func NewError(kind error, op, key string, err error) *Error {
	return &Error{Kind: kind, Op: op, Key: key, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Key != "" {
		fmt.Fprintf(&b, " %q", e.Key)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// SweepError reports a best-effort sweep (RemoveAll, RemoveExpired) in which some
// entries could not be deleted. The sweep itself ran to completion.
type SweepError struct {
	Op     string
	Failed int
	Errs   []error
}

func (e *SweepError) Error() string {
	return fmt.Sprintf("%s: %d entries could not be removed: %v", e.Op, e.Failed, errors.Join(e.Errs...))
}

func (e *SweepError) Unwrap() []error {
	return append([]error{ErrStorageWrite}, e.Errs...)
}

// KindOf returns the first known kind found in err's chain, or nil.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrCacheWrite, ErrCacheRead, ErrEncoding, ErrDecoding,
		ErrStorageRead, ErrStorageWrite, ErrItemTooLarge, ErrInvalidKey, ErrClosed,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
