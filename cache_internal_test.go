package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/tiered-cache/codec"
	"github.com/krisalay/tiered-cache/config"
	"github.com/krisalay/tiered-cache/expiration"
	"github.com/krisalay/tiered-cache/types"
)

func TestPromotionIntoMemory(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.StorageLocation = t.TempDir()

	c, err := New[string](cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", "v"))
	c.memory.RemoveAll()

	_, ok := c.memory.Get("k")
	require.False(t, ok, "memory should start cold")

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", v)

	v, ok = c.memory.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestPromotionKeepsDeadline(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.StorageLocation = t.TempDir()

	c, err := New[int](cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SetWithExpiry(ctx, "k", 7, mustParseExpiry(t, "1h")))
	want, ok, err := c.Entry(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	c.memory.RemoveAll()
	_, _, err = c.Get(ctx, "k")
	require.NoError(t, err)

	got, ok := c.memory.Entry("k")
	require.True(t, ok)
	assert.True(t, want.ExpireAt.Equal(got.ExpireAt))
	assert.Equal(t, want.Cost, got.Cost)
}

func TestRemoveAllRacesWithSet(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.StorageLocation = t.TempDir()

	c, err := New[int](cfg)
	require.NoError(t, err)
	defer c.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = c.Set(ctx, "k", i)
		}
	}()
	for i := 0; i < 20; i++ {
		require.NoError(t, c.RemoveAll(ctx))
	}
	<-done

	// RemoveAll holds every key lock, so whatever survived is in both tiers or neither.
	assert.Equal(t, c.disk.Exists("k"), c.memory.Exists("k"))
}

func TestMemoryFollowsDiskEvictionUnderLoad(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.StorageLocation = t.TempDir()
	// Each entry is a 16 byte header plus a short JSON number; room for about a dozen.
	cfg.MaxDiskBytes = 220

	c, err := New[int](cfg)
	require.NoError(t, err)
	defer c.Close()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("k%d", (g*100+i)%40)
				_ = c.Set(ctx, key, i)
				_, _, _ = c.Get(ctx, fmt.Sprintf("k%d", i%40))
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.disk.Size(), int64(220))
	for i := 0; i < 40; i++ {
		key := fmt.Sprintf("k%d", i)
		if c.memory.Exists(key) {
			assert.True(t, c.disk.Exists(key), "memory holds %s after disk evicted it", key)
		}
	}
}

// decodeFails encodes with JSON but refuses to decode anything.
type decodeFails struct{ codec.JSON[[]int] }

func (decodeFails) Decode([]byte) ([]int, error) {
	return nil, types.NewError(types.ErrDecoding, "decode", "", errors.New("refused"))
}

func TestDetachedValueNotCachedWhenCopyFails(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.StorageLocation = t.TempDir()

	c, err := New[[]int](cfg, WithCodec[[]int](decodeFails{}), WithDetachedValues[[]int]())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "s", []int{1}))
	assert.True(t, c.disk.Exists("s"))
	assert.False(t, c.memory.Exists("s"), "memory must not keep the caller's value")
}

func mustParseExpiry(t *testing.T, s string) expiration.Expiry {
	t.Helper()
	e, err := expiration.Parse(s)
	require.NoError(t, err)
	return e
}
