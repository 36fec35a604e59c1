package eviction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	p := NewEvictionPolicy(LRU)
	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")
	p.OnGet("a")

	assert.Equal(t, "b", p.Evict())
	assert.Equal(t, "c", p.Evict())
	assert.Equal(t, "a", p.Evict())
	assert.Equal(t, "", p.Evict())
}

func TestFIFOIgnoresReads(t *testing.T) {
	p := NewEvictionPolicy(FIFO)
	p.OnPut("a")
	p.OnPut("b")
	p.OnGet("a")
	p.OnPut("a")

	assert.Equal(t, "a", p.Evict())
	assert.Equal(t, "b", p.Evict())
}

func TestLFUEvictsLeastFrequentOldestFirst(t *testing.T) {
	p := NewEvictionPolicy(LFU)
	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")
	p.OnGet("a")
	p.OnGet("a")
	p.OnGet("c")

	assert.Equal(t, "b", p.Evict())
	assert.Equal(t, "c", p.Evict())
	assert.Equal(t, "a", p.Evict())
	assert.Zero(t, p.Len())
}

func TestLFUSkipsStaleMinimum(t *testing.T) {
	p := NewEvictionPolicy(LFU)
	p.OnPut("a")
	p.OnPut("b")
	p.OnGet("b")
	p.Remove("a")

	assert.Equal(t, "b", p.Evict())
}

func TestRemoveAndReset(t *testing.T) {
	for _, typ := range []PolicyType{LRU, LFU, FIFO} {
		t.Run(string(typ), func(t *testing.T) {
			p := NewEvictionPolicy(typ)
			p.OnPut("a")
			p.OnPut("b")
			p.Remove("a")
			p.Remove("missing")
			require.Equal(t, 1, p.Len())
			assert.Equal(t, "b", p.Evict())

			p.OnPut("x")
			p.OnPut("y")
			p.Reset()
			assert.Zero(t, p.Len())
			assert.Equal(t, "", p.Evict())
		})
	}
}

func TestParsePolicyType(t *testing.T) {
	for in, want := range map[string]PolicyType{"": LRU, "lru": LRU, " LFU ": LFU, "fifo": FIFO} {
		got, err := ParsePolicyType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePolicyType("random")
	assert.Error(t, err)

	var pt PolicyType
	require.NoError(t, pt.UnmarshalText([]byte("lfu")))
	assert.Equal(t, LFU, pt)
}

func TestUnknownPolicyPanics(t *testing.T) {
	assert.Panics(t, func() { NewEvictionPolicy("MRU") })
}
