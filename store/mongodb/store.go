package mongodb

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
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const backend = "mongodb"

type requestTokenDocument struct {
	ID        string    `bson:"_id"`
	Payload   []byte    `bson:"payload"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store implements store.RequestTokenStore on a MongoDB collection. A TTL
// index removes expired documents; Take ignores the ones the index has not
// reached yet.
type Store struct {
	collection *mongo.Collection
	codec      *codec.TokenCodec
	ttl        time.Duration
	logger     log.Logger
}

var _ store.RequestTokenStore = (*Store)(nil)

// New prepares the collection's TTL index and returns a Store.
func New(ctx context.Context, db *mongo.Database, c *codec.TokenCodec, defaultTTL time.Duration, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Nop()
	}
	coll := db.Collection(RequestTokensCollection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create TTL index on %s: %w", RequestTokensCollection, err)
	}

	return &Store{
		collection: coll,
		codec:      c,
		ttl:        defaultTTL,
		logger:     logger.With(log.Fields{"backend": backend}),
	}, nil
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

	now := time.Now().UTC()
	doc := requestTokenDocument{
		ID:        store.NewHandle(),
		Payload:   data,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert request token: %w", err)
	}

	s.logger.Debug(ctx, "request token stored", log.Fields{"handle": doc.ID, "ttl": ttl.String()})
	return doc.ID, nil
}

func (s *Store) Take(ctx context.Context, handle string) (token *domain.RequestToken, err error) {
	ctx, span := tracing.StartStoreSpan(ctx, backend, "take")
	defer func() {
		metrics.ObserveStore(backend, "take", err)
		tracing.EndSpan(span, err)
	}()

	var doc requestTokenDocument
	err = s.collection.FindOneAndDelete(ctx, bson.M{"_id": handle}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.NotFound(handle)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take request token: %w", err)
	}
	if time.Now().After(doc.ExpiresAt) {
		return nil, store.NotFound(handle)
	}

	token, err = store.Decode(s.codec, handle, doc.Payload)
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

	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": handle}); err != nil {
		return fmt.Errorf("failed to delete request token: %w", err)
	}
	return nil
}

// Close is a no-op; the caller owns the client.
func (s *Store) Close() error {
	return nil
}
