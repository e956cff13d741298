package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pilab-dev/requesttoken/codec"
	"github.com/pilab-dev/requesttoken/domain"
	serrors "github.com/pilab-dev/requesttoken/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := New(client, "test", codec.New(), time.Minute, nil)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func testToken() *domain.RequestToken {
	return domain.NewRequestToken("abc", "xyz", true, domain.PropertiesFromPairs("k", "v"))
}

func TestStore_PutTake(t *testing.T) {
	s, mr := setupStore(t)
	ctx := context.Background()

	handle, err := s.Put(ctx, testToken(), 0)
	require.NoError(t, err)

	key := "test:reqtoken:" + handle
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	raw, err := mr.Get(key)
	require.NoError(t, err)
	want, err := codec.New().Encode(testToken())
	require.NoError(t, err)
	assert.Equal(t, string(want), raw, "the codec bytes are stored as is")

	got, err := s.Take(ctx, handle)
	require.NoError(t, err)
	assert.True(t, testToken().Equal(got))
	assert.False(t, mr.Exists(key))

	_, err = s.Take(ctx, handle)
	assert.ErrorIs(t, err, serrors.ErrTokenNotFound)
}

func TestStore_Expiry(t *testing.T) {
	s, mr := setupStore(t)
	ctx := context.Background()

	handle, err := s.Put(ctx, testToken(), 10*time.Second)
	require.NoError(t, err)

	mr.FastForward(11 * time.Second)
	_, err = s.Take(ctx, handle)
	assert.ErrorIs(t, err, serrors.ErrTokenNotFound)
}

func TestStore_UndecodableEntry(t *testing.T) {
	s, mr := setupStore(t)
	require.NoError(t, mr.Set("test:reqtoken:old", "\x02\x00\x00\x00"))

	_, err := s.Take(context.Background(), "old")
	assert.ErrorIs(t, err, serrors.ErrTokenNotFound)
	assert.ErrorIs(t, err, serrors.ErrUnsupportedVersion)
	assert.False(t, mr.Exists("test:reqtoken:old"))
}

func TestStore_Delete(t *testing.T) {
	s, mr := setupStore(t)
	ctx := context.Background()

	handle, err := s.Put(ctx, testToken(), 0)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, handle))
	assert.False(t, mr.Exists("test:reqtoken:"+handle))
}

func TestStore_ServerDown(t *testing.T) {
	s, mr := setupStore(t)
	mr.Close()

	_, err := s.Put(context.Background(), testToken(), 0)
	assert.Error(t, err)
	_, err = s.Take(context.Background(), "h")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, serrors.ErrTokenNotFound)
}

func TestStore_NilToken(t *testing.T) {
	s, _ := setupStore(t)
	_, err := s.Put(context.Background(), nil, 0)
	assert.ErrorIs(t, err, serrors.ErrInvalidArgument)
}
