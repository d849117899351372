package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	a := Key("2024-08", "summary", "cfg1")
	b := Key("2024-08", "summary", "cfg1")
	c := Key("2024-08", "summary", "cfg2")
	d := Key("2024-08", "summarycfg", "1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d, "part boundaries must matter")
	assert.NotEqual(t, a, Key("2024-09", "summary", "cfg1"))
}

func TestStore_GetSetFlush(t *testing.T) {
	s := New(time.Minute, time.Minute)
	s.Set("k", 42)

	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	s.Flush()
	_, ok = s.Get("k")
	assert.False(t, ok)
}

func TestStore_Expiry(t *testing.T) {
	s := New(10*time.Millisecond, time.Hour)
	s.Set("k", "v")
	time.Sleep(20 * time.Millisecond)
	_, ok := s.Get("k")
	assert.False(t, ok)
}

func TestMemoize(t *testing.T) {
	s := New(time.Minute, time.Minute)
	calls := 0
	compute := func() (int, error) {
		calls++
		return 7, nil
	}

	v, hit, err := Memoize(s, "k", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, v)

	v, hit, err = Memoize(s, "k", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, calls)
}

func TestMemoize_ErrorsAreNotCached(t *testing.T) {
	s := New(time.Minute, time.Minute)
	boom := errors.New("boom")

	_, _, err := Memoize(s, "k", func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	_, ok := s.Get("k")
	assert.False(t, ok)
}

func TestMemoize_Nop(t *testing.T) {
	calls := 0
	for i := 0; i < 3; i++ {
		_, hit, err := Memoize(Nop{}, "k", func() (int, error) {
			calls++
			return i, nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
	}
	assert.Equal(t, 3, calls)
}
