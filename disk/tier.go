// Package disk implements the persistent tier of the cache: a directory holding
// one file per key, bounded by total size and swept for expired entries.
package disk

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/krisalay/tiered-cache/codec"
	"github.com/krisalay/tiered-cache/expiration"
	"github.com/krisalay/tiered-cache/types"
)

// Tier is a directory-backed store of encoded values.
type Tier[T any] struct {
	dir      string
	maxBytes int64
	codec    codec.Codec[T]

	// mu guards index and size. File reads run under the read side, so lookups of
	// different keys proceed in parallel; writes and deletes take the write side.
	mu    sync.RWMutex
	index map[string]*record
	size  int64

	now     func() time.Time
	metrics types.Metrics
	logger  *log.Logger
}

// record is the in-memory view of one entry file.
type record struct {
	name     string
	key      string // empty for entries indexed at Open and not yet read
	size     int64 // bytes on disk, header included
	expireAt time.Time
	accessed time.Time
}

// Option customizes a Tier.
type Option func(*options)

type options struct {
	maxBytes int64
	now      func() time.Time
	metrics  types.Metrics
	logger   *log.Logger
}

// WithMaxBytes bounds the total size of entry files. 0 means unlimited.
func WithMaxBytes(n int64) Option { return func(o *options) { o.maxBytes = n } }

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithMetrics reports evictions and expirations.
func WithMetrics(m types.Metrics) Option { return func(o *options) { o.metrics = m } }

// WithLogger sets the logger used for recoverable problems found on disk.
func WithLogger(l *log.Logger) Option { return func(o *options) { o.logger = l } }

/*
Open creates dir if needed and indexes the entries already in it.

Leftover temp files from interrupted writes are deleted. Files whose header cannot
be read are deleted as corrupt. Neither aborts Open.
*/
func Open[T any](dir string, c codec.Codec[T], opts ...Option) (*Tier[T], error) {
	o := options{now: time.Now, metrics: types.NoopMetrics{}, logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if dir == "" {
		return nil, errors.New("disk tier: empty storage location")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.NewError(types.ErrStorageWrite, "disk open", "", fmt.Errorf("failed to create cache directory: %w", err))
	}

	t := &Tier[T]{
		dir:      dir,
		maxBytes: o.maxBytes,
		codec:    c,
		index:    make(map[string]*record),
		now:      o.now,
		metrics:  o.metrics,
		logger:   o.logger,
	}
	if err := t.scan(); err != nil {
		return nil, types.NewError(types.ErrStorageRead, "disk open", "", err)
	}
	return t, nil
}

// Get decodes the live value stored for key.
func (t *Tier[T]) Get(key string) (T, bool, error) {
	ent, ok, err := t.Entry(key)
	return ent.Value, ok, err
}

/*
Entry reads key's file, checks its deadline, and decodes the payload.

An expired entry is deleted and reported as absent. A file with a damaged header
is deleted and reported as types.ErrStorageRead. A payload the codec rejects is
reported as types.ErrDecoding and left in place.
*/
func (t *Tier[T]) Entry(key string) (types.CacheEntry[T], bool, error) {
	var zero types.CacheEntry[T]
	name := fileName(key)
	now := t.now()

	t.mu.RLock()
	rec, ok := t.index[name]
	if !ok {
		t.mu.RUnlock()
		return zero, false, nil
	}
	if expiration.IsExpired(rec.expireAt, now) {
		t.mu.RUnlock()
		t.dropIfCurrent(rec, true)
		return zero, false, nil
	}
	data, err := os.ReadFile(t.path(name))
	t.mu.RUnlock()

	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			t.dropIfCurrent(rec, false)
			return zero, false, nil
		}
		return zero, false, types.NewError(types.ErrStorageRead, "disk get", key, err)
	}

	h, payload, err := decodeEntry(data)
	if err != nil {
		t.dropIfCurrent(rec, false)
		return zero, false, types.NewError(types.ErrStorageRead, "disk get", key, err)
	}

	v, err := t.codec.Decode(payload)
	if err != nil {
		return zero, false, fmt.Errorf("disk get %q: %w", key, err)
	}

	t.mu.Lock()
	if t.index[name] == rec {
		rec.accessed = now
		rec.key = key
	}
	t.mu.Unlock()
	// Persist recency so eviction order survives a restart. Best-effort.
	_ = os.Chtimes(t.path(name), now, now)

	return types.CacheEntry[T]{Key: key, Value: v, ExpireAt: h.expireAt, Cost: int64(h.cost)}, true, nil
}

/*
Set encodes value and writes it under key, replacing any previous entry.

The file is written to a temp name and renamed into place, so readers never see a
partial entry. After the write, the oldest-accessed entries are evicted until the
directory is back under the size limit. The returned cost is the payload length.

evicted lists the keys of entries removed to make room. Entries indexed at Open
and never read since have no known key and are not listed; nothing above this
tier can hold a copy of them.
*/
func (t *Tier[T]) Set(key string, value T, deadline time.Time) (cost int64, evicted []string, err error) {
	payload, err := t.codec.Encode(value)
	if err != nil {
		return 0, nil, fmt.Errorf("disk set %q: %w", key, err)
	}
	buf := encodeEntry(deadline, payload)
	size := int64(len(buf))
	if t.maxBytes > 0 && size > t.maxBytes {
		return 0, nil, types.NewError(types.ErrStorageWrite, "disk set", key, types.ErrItemTooLarge)
	}

	name := fileName(key)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.writeFile(name, buf, now); err != nil {
		return 0, nil, types.NewError(types.ErrStorageWrite, "disk set", key, err)
	}
	if old, ok := t.index[name]; ok {
		t.size -= old.size
	}
	t.index[name] = &record{name: name, key: key, size: size, expireAt: deadline, accessed: now}
	t.size += size

	return int64(len(payload)), t.enforceLimitLocked(name), nil
}

// Exists reports whether key has a live entry, judging by the index alone.
func (t *Tier[T]) Exists(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.index[fileName(key)]
	return ok && !expiration.IsExpired(rec.expireAt, t.now())
}

// Remove deletes key's file. Removing a missing key is a no-op.
func (t *Tier[T]) Remove(key string) error {
	name := fileName(key)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.index[name]; !ok {
		return nil
	}
	if err := t.deleteLocked(name); err != nil {
		return types.NewError(types.ErrStorageWrite, "disk remove", key, err)
	}
	return nil
}

/*
RemoveAll deletes everything under the storage location, then recreates the empty
directory. Deletion is best-effort: a failing entry is counted and the sweep moves on.
Failures are reported as a *types.SweepError.
*/
func (t *Tier[T]) RemoveAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries, err := os.ReadDir(t.dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return types.NewError(types.ErrStorageWrite, "disk remove all", "", err)
	}

	var errs []error
	kept := make(map[string]*record)
	for _, e := range entries {
		if err := os.RemoveAll(t.path(e.Name())); err != nil {
			errs = append(errs, err)
			if rec, ok := t.index[e.Name()]; ok {
				kept[e.Name()] = rec
			}
		}
	}

	t.index = kept
	t.size = 0
	for _, rec := range kept {
		t.size += rec.size
	}

	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &types.SweepError{Op: "disk remove all", Failed: len(errs), Errs: errs}
	}
	return nil
}

// RemoveExpired deletes every expired entry and returns how many were deleted.
// Entries that cannot be deleted are counted in a *types.SweepError.
func (t *Tier[T]) RemoveExpired() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	var errs []error
	for name, rec := range t.index {
		if !expiration.IsExpired(rec.expireAt, now) {
			continue
		}
		if err := t.deleteLocked(name); err != nil {
			errs = append(errs, err)
			continue
		}
		t.metrics.Expire()
		removed++
	}
	if len(errs) > 0 {
		return removed, &types.SweepError{Op: "disk remove expired", Failed: len(errs), Errs: errs}
	}
	return removed, nil
}

// Len returns the number of indexed entries.
func (t *Tier[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.index)
}

// Size returns the total bytes of indexed entry files.
func (t *Tier[T]) Size() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Dir returns the storage location.
func (t *Tier[T]) Dir() string { return t.dir }

func (t *Tier[T]) path(name string) string { return filepath.Join(t.dir, name) }

// dropIfCurrent deletes rec's file unless a concurrent Set already replaced it.
func (t *Tier[T]) dropIfCurrent(rec *record, expired bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.index[rec.name] != rec {
		return
	}
	if err := t.deleteLocked(rec.name); err != nil {
		t.logger.Warn("Could not delete cache entry", "file", rec.name, "err", err)
		return
	}
	if expired {
		t.metrics.Expire()
	}
}

// deleteLocked removes name's file and forgets it. A file already gone counts as success. Must hold mu.
func (t *Tier[T]) deleteLocked(name string) error {
	if err := os.Remove(t.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if rec, ok := t.index[name]; ok {
		t.size -= rec.size
		delete(t.index, name)
	}
	return nil
}

// enforceLimitLocked evicts least recently accessed entries, never keep, until size fits,
// and returns the known keys of the victims. Must hold mu.
func (t *Tier[T]) enforceLimitLocked(keep string) (evicted []string) {
	if t.maxBytes <= 0 || t.size <= t.maxBytes {
		return nil
	}

	victims := make([]*record, 0, len(t.index))
	for name, rec := range t.index {
		if name != keep {
			victims = append(victims, rec)
		}
	}
	sort.Slice(victims, func(i, j int) bool {
		return victims[i].accessed.Before(victims[j].accessed)
	})

	for _, rec := range victims {
		if t.size <= t.maxBytes {
			break
		}
		if err := t.deleteLocked(rec.name); err != nil {
			t.logger.Warn("Could not evict cache entry", "file", rec.name, "err", err)
			continue
		}
		t.metrics.Eviction()
		if rec.key != "" {
			evicted = append(evicted, rec.key)
		}
	}
	return evicted
}

func (t *Tier[T]) writeFile(name string, data []byte, now time.Time) error {
	// Write to temp file first, then rename (atomic on most systems)
	f, err := os.CreateTemp(t.dir, name+".*"+tempExt)
	if err != nil {
		return err
	}
	tmp := f.Name()

	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, t.path(name)); err != nil {
		os.Remove(tmp)
		return err
	}
	_ = os.Chtimes(t.path(name), now, now)
	return nil
}

// scan rebuilds the index from the directory contents.
func (t *Tier[T]) scan() error {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(name, tempExt) {
			if err := os.Remove(t.path(name)); err != nil {
				t.logger.Warn("Could not remove stale temp file", "file", name, "err", err)
			}
			continue
		}
		if !strings.HasSuffix(name, fileExt) {
			continue
		}
		rec, err := t.readRecord(name)
		if err != nil {
			t.logger.Warn("Dropping unreadable cache entry", "file", name, "err", err)
			_ = os.Remove(t.path(name))
			continue
		}
		t.index[name] = rec
		t.size += rec.size
	}
	t.logger.Debug("Indexed disk tier", "dir", t.dir, "entries", len(t.index), "bytes", t.size)
	return nil
}

func (t *Tier[T]) readRecord(name string) (*record, error) {
	f, err := os.Open(t.path(name))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	h, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}
	if uint64(info.Size()-headerSize) != h.cost {
		return nil, fmt.Errorf("size %d does not match header", info.Size())
	}
	return &record{name: name, size: info.Size(), expireAt: h.expireAt, accessed: info.ModTime()}, nil
}
