package expiration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeadline(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	abs := now.Add(time.Hour)

	assert.True(t, Never().Deadline(now).IsZero())
	assert.True(t, Expiry{}.IsNever())
	assert.Equal(t, now.Add(time.Minute), After(time.Minute).Deadline(now))
	assert.Equal(t, abs, At(abs).Deadline(now))
}

func TestIsExpired(t *testing.T) {
	now := time.Now()

	assert.False(t, IsExpired(time.Time{}, now), "zero deadline never expires")
	assert.True(t, IsExpired(now, now))
	assert.True(t, IsExpired(now.Add(-time.Second), now))
	assert.False(t, IsExpired(now.Add(time.Second), now))
	assert.True(t, IsExpired(After(-time.Second).Deadline(now), now))
}

func TestParse(t *testing.T) {
	e, err := Parse("never")
	require.NoError(t, err)
	assert.True(t, e.IsNever())

	e, err = Parse("")
	require.NoError(t, err)
	assert.True(t, e.IsNever())

	e, err = Parse("90s")
	require.NoError(t, err)
	assert.Equal(t, After(90*time.Second), e)

	e, err = Parse("2030-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2030-01-01T00:00:00Z", e.String())

	_, err = Parse("tomorrow")
	assert.Error(t, err)
}

func TestTextRoundTrip(t *testing.T) {
	for _, e := range []Expiry{Never(), After(5 * time.Minute)} {
		b, err := e.MarshalText()
		require.NoError(t, err)

		var got Expiry
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, e, got)
	}
}
