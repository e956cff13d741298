package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/requesttoken/codec"
	"github.com/pilab-dev/requesttoken/domain"
	"github.com/pilab-dev/requesttoken/internal/metrics"
	"github.com/pilab-dev/requesttoken/log"
	"github.com/pilab-dev/requesttoken/store"
	"github.com/pilab-dev/requesttoken/tracing"
	"github.com/redis/go-redis/v9"
)

const backend = "redis"

// Store implements store.RequestTokenStore on Redis. Each token is one
// string key holding the encoded bytes with a native expiry.
type Store struct {
	client redis.UniversalClient
	prefix string
	codec  *codec.TokenCodec
	ttl    time.Duration
	logger log.Logger
}

var _ store.RequestTokenStore = (*Store)(nil)

// New creates a Store. The Store owns client and closes it on Close.
func New(client redis.UniversalClient, prefix string, c *codec.TokenCodec, defaultTTL time.Duration, logger log.Logger) *Store {
	if logger == nil {
		logger = log.Nop()
	}
	return &Store{
		client: client,
		prefix: prefix,
		codec:  c,
		ttl:    defaultTTL,
		logger: logger.With(log.Fields{"backend": backend}),
	}
}

// redisKey returns the Redis key for a handle.
func (s *Store) redisKey(handle string) string {
	return fmt.Sprintf("%s:reqtoken:%s", s.prefix, handle)
}

func (s *Store) Put(ctx context.Context, token *domain.RequestToken, ttl time.Duration) (handle string, err error) {
	ctx, span := tracing.StartStoreSpan(ctx, backend, "put")
	defer func() {
		metrics.ObserveStore(backend, "put", err)
		tracing.EndSpan(span, err)
	}()

	data, ttl, err := store.Encode(s.codec, token, ttl, s.ttl)
	if err != nil {
		return "", err
	}

	handle = store.NewHandle()
	if err := s.client.Set(ctx, s.redisKey(handle), data, ttl).Err(); err != nil {
		s.logger.Error(ctx, "failed to store request token", err, log.Fields{"handle": handle})
		return "", fmt.Errorf("failed to set request token in Redis: %w", err)
	}

	s.logger.Debug(ctx, "request token stored", log.Fields{"handle": handle, "ttl": ttl.String()})
	return handle, nil
}

// Take uses GETDEL so two concurrent callbacks cannot both redeem a handle.
func (s *Store) Take(ctx context.Context, handle string) (token *domain.RequestToken, err error) {
	ctx, span := tracing.StartStoreSpan(ctx, backend, "take")
	defer func() {
		metrics.ObserveStore(backend, "take", err)
		tracing.EndSpan(span, err)
	}()

	data, err := s.client.GetDel(ctx, s.redisKey(handle)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.NotFound(handle)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take request token from Redis: %w", err)
	}

	token, err = store.Decode(s.codec, handle, data)
	if err != nil {
		s.logger.Warn(ctx, "dropping undecodable request token", log.Fields{"handle": handle, "error": err.Error()})
		return nil, err
	}
	return token, nil
}

func (s *Store) Delete(ctx context.Context, handle string) (err error) {
	ctx, span := tracing.StartStoreSpan(ctx, backend, "delete")
	defer func() {
		metrics.ObserveStore(backend, "delete", err)
		tracing.EndSpan(span, err)
	}()

	if err := s.client.Del(ctx, s.redisKey(handle)).Err(); err != nil {
		return fmt.Errorf("failed to delete request token from Redis: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
