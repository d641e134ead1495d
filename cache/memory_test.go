package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "session:a", []byte(`{"userId":1}`), 0))

	got, err := s.Get(ctx, "session:a")
	require.NoError(t, err)
	assert.Equal(t, `{"userId":1}`, string(got))

	require.NoError(t, s.Delete(ctx, "session:a"))
	_, err = s.Get(ctx, "session:a")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryStore_MissingKey(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryStore_DeleteMissingKeyIsNoop(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Delete(context.Background(), "nope"))
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))

	now = now.Add(59 * time.Second)
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 0, s.Len(), "expired entry is dropped on read")
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", value, 0))
	value[0] = 'X'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'Y'
	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
