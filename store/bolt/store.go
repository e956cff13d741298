package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pilab-dev/requesttoken/codec"
	"github.com/pilab-dev/requesttoken/domain"
	"github.com/pilab-dev/requesttoken/internal/metrics"
	"github.com/pilab-dev/requesttoken/log"
	"github.com/pilab-dev/requesttoken/store"
	"github.com/pilab-dev/requesttoken/tracing"
	"go.etcd.io/bbolt"
)

const (
	backend = "bolt"

	// BucketName holds one entry per handle.
	BucketName = "request_tokens"

	// expiryPrefixLen is the unix-nano expiry stored ahead of the token bytes.
	expiryPrefixLen = 8
)

// Store implements store.RequestTokenStore on a bbolt file. A background
// loop sweeps expired entries; Take also ignores them.
type Store struct {
	db              *bbolt.DB
	codec           *codec.TokenCodec
	ttl             time.Duration
	cleanupInterval time.Duration
	logger          log.Logger

	stopCleanup chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

var _ store.RequestTokenStore = (*Store)(nil)

// New opens (or creates) the database at path. A positive cleanupInterval
// starts the sweep loop.
func New(path string, c *codec.TokenCodec, defaultTTL, cleanupInterval time.Duration, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Nop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database at %s: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", BucketName, err)
	}

	s := &Store{
		db:              db,
		codec:           c,
		ttl:             defaultTTL,
		cleanupInterval: cleanupInterval,
		logger:          logger.With(log.Fields{"backend": backend}),
		stopCleanup:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		s.wg.Add(1)
		go s.runCleanupLoop()
	}
	return s, nil
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

	value := make([]byte, expiryPrefixLen, expiryPrefixLen+len(data))
	binary.BigEndian.PutUint64(value, uint64(time.Now().Add(ttl).UnixNano()))
	value = append(value, data...)

	handle = store.NewHandle()
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketName)).Put([]byte(handle), value)
	})
	if err != nil {
		return "", fmt.Errorf("failed to put request token %s: %w", handle, err)
	}

	s.logger.Debug(ctx, "request token stored", log.Fields{"handle": handle, "ttl": ttl.String()})
	return handle, nil
}

// Take reads and deletes the entry in one write transaction.
func (s *Store) Take(ctx context.Context, handle string) (token *domain.RequestToken, err error) {
	ctx, span := tracing.StartStoreSpan(ctx, backend, "take")
	defer func() {
		metrics.ObserveStore(backend, "take", err)
		tracing.EndSpan(span, err)
	}()

	var data []byte
	var expired bool
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName))
		v := b.Get([]byte(handle))
		if v == nil {
			return nil
		}
		if len(v) >= expiryPrefixLen {
			expired = time.Now().UnixNano() > int64(binary.BigEndian.Uint64(v[:expiryPrefixLen]))
			// Values are only valid during the transaction.
			data = make([]byte, len(v)-expiryPrefixLen)
			copy(data, v[expiryPrefixLen:])
		} else {
			data = []byte{}
		}
		return b.Delete([]byte(handle))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take request token %s: %w", handle, err)
	}
	if data == nil || expired {
		return nil, store.NotFound(handle)
	}

	token, err = store.Decode(s.codec, handle, data)
	if err != nil {
		s.logger.Warn(ctx, "dropping undecodable request token", log.Fields{"handle": handle, "error": err.Error()})
		return nil, err
	}
	return token, nil
}

func (s *Store) Delete(ctx context.Context, handle string) (err error) {
	_, span := tracing.StartStoreSpan(ctx, backend, "delete")
	defer func() {
		metrics.ObserveStore(backend, "delete", err)
		tracing.EndSpan(span, err)
	}()

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketName)).Delete([]byte(handle))
	})
	if err != nil {
		return fmt.Errorf("failed to delete request token %s: %w", handle, err)
	}
	return nil
}

// Sweep removes every expired entry and reports how many it removed.
func (s *Store) Sweep() (int, error) {
	now := time.Now().UnixNano()
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName))
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if len(v) < expiryPrefixLen || now > int64(binary.BigEndian.Uint64(v[:expiryPrefixLen])) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, err
}

func (s *Store) runCleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.Sweep()
			if err != nil {
				s.logger.Error(context.Background(), "failed to sweep expired request tokens", err)
				continue
			}
			if n > 0 {
				s.logger.Debug(context.Background(), "swept expired request tokens", log.Fields{"removed": n})
			}
		case <-s.stopCleanup:
			return
		}
	}
}

// Close stops the sweep loop and closes the database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}
