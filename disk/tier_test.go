package disk

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/tiered-cache/codec"
	"github.com/krisalay/tiered-cache/types"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func openString(t *testing.T, dir string, opts ...Option) *Tier[string] {
	t.Helper()
	tier, err := Open[string](dir, codec.JSON[string]{}, opts...)
	require.NoError(t, err)
	return tier
}

func TestSetGetRemove(t *testing.T) {
	tier := openString(t, t.TempDir())

	cost, _, err := tier.Set("k", "value", time.Time{})
	require.NoError(t, err)
	assert.EqualValues(t, len(`"value"`), cost)

	v, ok, err := tier.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", v)
	assert.True(t, tier.Exists("k"))

	require.NoError(t, tier.Remove("k"))
	require.NoError(t, tier.Remove("k"))
	_, ok, err = tier.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, tier.Size())
}

func TestFileLayout(t *testing.T) {
	dir := t.TempDir()
	tier := openString(t, dir)

	deadline := time.Unix(1_800_000_000, 0)
	_, _, err := tier.Set("some/key with spaces", "v", deadline)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	name := entries[0].Name()
	assert.Equal(t, fileName("some/key with spaces"), name)
	assert.True(t, strings.HasSuffix(name, fileExt))
	assert.Len(t, strings.TrimSuffix(name, fileExt), 64)

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	h, payload, err := decodeEntry(data)
	require.NoError(t, err)
	assert.True(t, deadline.Equal(h.expireAt))
	assert.EqualValues(t, len(`"v"`), h.cost)
	assert.Equal(t, `"v"`, string(payload))
}

func TestExpiredEntryIsDeletedOnRead(t *testing.T) {
	clock := newClock()
	counters := &types.Counters{}
	dir := t.TempDir()
	tier := openString(t, dir, WithClock(clock.Now), WithMetrics(counters))

	_, _, err := tier.Set("k", "v", clock.Now().Add(time.Second))
	require.NoError(t, err)
	clock.Advance(time.Second)

	assert.False(t, tier.Exists("k"))
	_, ok, err := tier.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoFileExists(t, filepath.Join(dir, fileName("k")))
	assert.EqualValues(t, 1, counters.Snapshot().Expired)
}

func TestRemoveExpired(t *testing.T) {
	clock := newClock()
	tier := openString(t, t.TempDir(), WithClock(clock.Now))

	for _, k := range []string{"a", "b", "c"} {
		_, _, err := tier.Set(k, k, clock.Now().Add(time.Minute))
		require.NoError(t, err)
	}
	_, _, err := tier.Set("keep", "keep", time.Time{})
	require.NoError(t, err)

	clock.Advance(time.Hour)

	n, err := tier.RemoveExpired()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, tier.Len())
}

func TestSizeLimitEvictsLeastRecentlyAccessed(t *testing.T) {
	clock := newClock()
	counters := &types.Counters{}
	// headerSize + len(`"x"`) = 19 bytes per entry; room for three.
	tier := openString(t, t.TempDir(), WithMaxBytes(60), WithClock(clock.Now), WithMetrics(counters))

	for _, k := range []string{"a", "b", "c"} {
		_, _, err := tier.Set(k, "x", time.Time{})
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	// Touch "a" so "b" becomes the oldest access.
	_, ok, err := tier.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	clock.Advance(time.Second)

	_, evicted, err := tier.Set("d", "x", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, evicted)

	assert.True(t, tier.Exists("a"))
	assert.False(t, tier.Exists("b"))
	assert.True(t, tier.Exists("c"))
	assert.True(t, tier.Exists("d"))
	assert.LessOrEqual(t, tier.Size(), int64(60))
	assert.EqualValues(t, 1, counters.Snapshot().Evictions)
}

func TestEvictedKeysAfterReopen(t *testing.T) {
	clock := newClock()
	dir := t.TempDir()

	first := openString(t, dir, WithClock(clock.Now))
	for _, k := range []string{"a", "b"} {
		_, _, err := first.Set(k, "x", time.Time{})
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	// Room for two 19 byte entries. "b" is read after reopening, "a" is not.
	second := openString(t, dir, WithMaxBytes(40), WithClock(clock.Now))
	_, ok, err := second.Get("b")
	require.NoError(t, err)
	require.True(t, ok)
	clock.Advance(time.Second)

	_, evicted, err := second.Set("c", "x", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, evicted, "a was never read, so its key is unknown")
	assert.False(t, second.Exists("a"))

	clock.Advance(time.Second)
	_, evicted, err = second.Set("d", "x", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, evicted)
}

func TestEntryLargerThanLimit(t *testing.T) {
	tier := openString(t, t.TempDir(), WithMaxBytes(20))

	_, _, err := tier.Set("k", strings.Repeat("x", 100), time.Time{})
	assert.ErrorIs(t, err, types.ErrStorageWrite)
	assert.ErrorIs(t, err, types.ErrItemTooLarge)
	assert.Zero(t, tier.Len())
}

func TestReopenRebuildsIndex(t *testing.T) {
	dir := t.TempDir()
	first := openString(t, dir)
	for _, k := range []string{"a", "b"} {
		_, _, err := first.Set(k, k+"-value", time.Time{})
		require.NoError(t, err)
	}

	second := openString(t, dir)
	assert.Equal(t, 2, second.Len())
	assert.Equal(t, first.Size(), second.Size())

	v, ok, err := second.Get("b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b-value", v)
}

func TestOpenCleansUpDebris(t *testing.T) {
	dir := t.TempDir()
	tmp := filepath.Join(dir, "abc.cache.123.tmp")
	corrupt := filepath.Join(dir, fileName("corrupt"))
	unrelated := filepath.Join(dir, "README")

	require.NoError(t, os.WriteFile(tmp, []byte("partial"), 0o644))
	require.NoError(t, os.WriteFile(corrupt, []byte("short"), 0o644))
	require.NoError(t, os.WriteFile(unrelated, []byte("hello"), 0o644))

	tier := openString(t, dir)

	assert.Zero(t, tier.Len())
	assert.NoFileExists(t, tmp)
	assert.NoFileExists(t, corrupt)
	assert.FileExists(t, unrelated)
}

func TestCorruptEntryOnRead(t *testing.T) {
	dir := t.TempDir()
	tier := openString(t, dir)

	_, _, err := tier.Set("k", "value", time.Time{})
	require.NoError(t, err)

	// Truncate the payload behind the tier's back.
	path := filepath.Join(dir, fileName("k"))
	require.NoError(t, os.Truncate(path, headerSize+2))

	_, ok, err := tier.Get("k")
	assert.False(t, ok)
	assert.ErrorIs(t, err, types.ErrStorageRead)
	assert.NoFileExists(t, path)
	assert.False(t, tier.Exists("k"))
}

func TestDecodeErrorLeavesEntry(t *testing.T) {
	dir := t.TempDir()
	writer := openString(t, dir)
	_, _, err := writer.Set("k", "not a number", time.Time{})
	require.NoError(t, err)

	reader, err := Open[int](dir, codec.JSON[int]{})
	require.NoError(t, err)

	_, ok, err := reader.Get("k")
	assert.False(t, ok)
	assert.ErrorIs(t, err, types.ErrDecoding)
	assert.True(t, reader.Exists("k"))
}

func TestFileDeletedBehindBack(t *testing.T) {
	dir := t.TempDir()
	tier := openString(t, dir)

	_, _, err := tier.Set("k", "v", time.Time{})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, fileName("k"))))

	_, ok, err := tier.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, tier.Len())
}

func TestRemoveAll(t *testing.T) {
	dir := t.TempDir()
	tier := openString(t, dir)

	for _, k := range []string{"a", "b", "c"} {
		_, _, err := tier.Set(k, k, time.Time{})
		require.NoError(t, err)
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	require.NoError(t, tier.RemoveAll())
	require.NoError(t, tier.RemoveAll())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, tier.Len())
	assert.Zero(t, tier.Size())
}

func TestWriteFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	tier := openString(t, dir)

	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, nil, 0o644))

	_, _, err := tier.Set("k", "v", time.Time{})
	assert.ErrorIs(t, err, types.ErrStorageWrite)
	assert.False(t, tier.Exists("k"))
}

func TestOpenRejectsEmptyDir(t *testing.T) {
	_, err := Open[string]("", codec.JSON[string]{})
	assert.Error(t, err)
}
