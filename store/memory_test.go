package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pilab-dev/requesttoken/codec"
	"github.com/pilab-dev/requesttoken/domain"
	serrors "github.com/pilab-dev/requesttoken/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryStore(t *testing.T, ttl time.Duration) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(codec.New(), ttl, nil)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testToken() *domain.RequestToken {
	return domain.NewRequestToken("abc", "xyz", true, domain.PropertiesFromPairs(".redirect", "/home"))
}

func TestMemoryStore_PutTake(t *testing.T) {
	s := newTestMemoryStore(t, time.Minute)
	ctx := context.Background()

	handle, err := s.Put(ctx, testToken(), 0)
	require.NoError(t, err)
	assert.Len(t, handle, 36)
	assert.Equal(t, 1, s.Len())

	got, err := s.Take(ctx, handle)
	require.NoError(t, err)
	assert.True(t, testToken().Equal(got))

	_, err = s.Take(ctx, handle)
	assert.ErrorIs(t, err, serrors.ErrTokenNotFound, "take is single use")
}

func TestMemoryStore_StoredValueIsIsolated(t *testing.T) {
	s := newTestMemoryStore(t, time.Minute)
	ctx := context.Background()

	tok := testToken()
	handle, err := s.Put(ctx, tok, 0)
	require.NoError(t, err)
	tok.Token = "changed"
	tok.Properties.Set("late", "entry")

	got, err := s.Take(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Token)
	assert.Equal(t, 1, got.Properties.Len())
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := newTestMemoryStore(t, time.Minute)
	ctx := context.Background()

	handle, err := s.Put(ctx, testToken(), 20*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	_, err = s.Take(ctx, handle)
	assert.ErrorIs(t, err, serrors.ErrTokenNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := newTestMemoryStore(t, time.Minute)
	ctx := context.Background()

	handle, err := s.Put(ctx, testToken(), 0)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, handle))
	require.NoError(t, s.Delete(ctx, "unknown"))

	_, err = s.Take(ctx, handle)
	assert.ErrorIs(t, err, serrors.ErrTokenNotFound)
}

func TestMemoryStore_UndecodableEntry(t *testing.T) {
	s := newTestMemoryStore(t, time.Minute)
	s.cache.Set("stale", []byte{2, 0, 0, 0}, time.Minute)

	_, err := s.Take(context.Background(), "stale")
	assert.ErrorIs(t, err, serrors.ErrTokenNotFound)
	assert.ErrorIs(t, err, serrors.ErrUnsupportedVersion)
	assert.Zero(t, s.Len(), "undecodable entries are removed")
}

func TestMemoryStore_NilToken(t *testing.T) {
	s := newTestMemoryStore(t, time.Minute)

	_, err := s.Put(context.Background(), nil, 0)
	assert.True(t, errors.Is(err, serrors.ErrInvalidArgument))
}

func TestEncode_DefaultTTL(t *testing.T) {
	_, ttl, err := Encode(codec.New(), testToken(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, ttl)

	_, ttl, err = Encode(codec.New(), testToken(), -1, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	_, ttl, err = Encode(codec.New(), testToken(), time.Second, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Second, ttl)
}
