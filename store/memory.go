package store

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pilab-dev/requesttoken/codec"
	"github.com/pilab-dev/requesttoken/domain"
	"github.com/pilab-dev/requesttoken/internal/metrics"
	"github.com/pilab-dev/requesttoken/log"
	"github.com/pilab-dev/requesttoken/tracing"
)

const memoryBackend = "memory"

// MemoryStore implements RequestTokenStore using ttlcache. Entries hold the
// encoded bytes, so callers never share a token value with the store.
type MemoryStore struct {
	cache  *ttlcache.Cache[string, []byte]
	codec  *codec.TokenCodec
	ttl    time.Duration
	logger log.Logger
}

// NewMemoryStore creates an in-memory store and starts its expiry loop.
// defaultTTL applies when Put gets a non-positive ttl.
func NewMemoryStore(c *codec.TokenCodec, defaultTTL time.Duration, logger log.Logger) *MemoryStore {
	if logger == nil {
		logger = log.Nop()
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, []byte](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)

	go cache.Start()

	return &MemoryStore{
		cache:  cache,
		codec:  c,
		ttl:    defaultTTL,
		logger: logger.With(log.Fields{"backend": memoryBackend}),
	}
}

func (s *MemoryStore) Put(ctx context.Context, token *domain.RequestToken, ttl time.Duration) (handle string, err error) {
	ctx, span := tracing.StartStoreSpan(ctx, memoryBackend, "put")
	defer func() {
		metrics.ObserveStore(memoryBackend, "put", err)
		tracing.EndSpan(span, err)
	}()

	data, ttl, err := Encode(s.codec, token, ttl, s.ttl)
	if err != nil {
		return "", err
	}

	handle = NewHandle()
	s.cache.Set(handle, data, ttl)
	s.logger.Debug(ctx, "request token stored", log.Fields{"handle": handle, "ttl": ttl.String()})
	return handle, nil
}

func (s *MemoryStore) Take(ctx context.Context, handle string) (token *domain.RequestToken, err error) {
	ctx, span := tracing.StartStoreSpan(ctx, memoryBackend, "take")
	defer func() {
		metrics.ObserveStore(memoryBackend, "take", err)
		tracing.EndSpan(span, err)
	}()

	item, ok := s.cache.GetAndDelete(handle)
	if !ok || item == nil || item.IsExpired() {
		return nil, NotFound(handle)
	}

	token, err = Decode(s.codec, handle, item.Value())
	if err != nil {
		s.logger.Warn(ctx, "dropping undecodable request token", log.Fields{"handle": handle, "error": err.Error()})
		return nil, err
	}
	s.logger.Debug(ctx, "request token taken", log.Fields{"handle": handle})
	return token, nil
}

func (s *MemoryStore) Delete(ctx context.Context, handle string) error {
	_, span := tracing.StartStoreSpan(ctx, memoryBackend, "delete")
	defer tracing.EndSpan(span, nil)

	s.cache.Delete(handle)
	metrics.ObserveStore(memoryBackend, "delete", nil)
	return nil
}

// Len counts the stored entries, including ones not yet swept.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

// Close stops the expiry loop.
func (s *MemoryStore) Close() error {
	s.cache.Stop()
	return nil
}

