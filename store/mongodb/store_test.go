package mongodb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/pilab-dev/requesttoken/codec"
	"github.com/pilab-dev/requesttoken/domain"
	serrors "github.com/pilab-dev/requesttoken/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// setupTestDB connects to TEST_MONGO_URI and returns a fresh database that
// is dropped when the test ends.
func setupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set, skipping MongoDB tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	client, err := Connect(ctx, uri)
	require.NoError(t, err)

	db := client.Database(fmt.Sprintf("reqtoken_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("Warning: failed to drop database %s: %v", db.Name(), err)
		}
		_ = client.Disconnect(ctx)
	})
	return db
}

func testToken() *domain.RequestToken {
	return domain.NewRequestToken("abc", "xyz", true, domain.PropertiesFromPairs("k", "v"))
}

func TestStore_PutTake(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s, err := New(ctx, db, codec.New(), time.Minute, nil)
	require.NoError(t, err)

	handle, err := s.Put(ctx, testToken(), 0)
	require.NoError(t, err)

	got, err := s.Take(ctx, handle)
	require.NoError(t, err)
	assert.True(t, testToken().Equal(got))

	_, err = s.Take(ctx, handle)
	assert.ErrorIs(t, err, serrors.ErrTokenNotFound)
}

func TestStore_ExpiredAndUndecodable(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s, err := New(ctx, db, codec.New(), time.Minute, nil)
	require.NoError(t, err)

	data, err := codec.New().Encode(testToken())
	require.NoError(t, err)
	_, err = db.Collection(RequestTokensCollection).InsertMany(ctx, []interface{}{
		bson.M{"_id": "expired", "payload": data, "expires_at": time.Now().Add(-time.Hour)},
		bson.M{"_id": "stale", "payload": []byte{3, 0, 0, 0}, "expires_at": time.Now().Add(time.Hour)},
	})
	require.NoError(t, err)

	_, err = s.Take(ctx, "expired")
	assert.ErrorIs(t, err, serrors.ErrTokenNotFound)

	_, err = s.Take(ctx, "stale")
	assert.ErrorIs(t, err, serrors.ErrTokenNotFound)
	assert.ErrorIs(t, err, serrors.ErrUnsupportedVersion)
}

func TestStore_Delete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s, err := New(ctx, db, codec.New(), time.Minute, nil)
	require.NoError(t, err)

	handle, err := s.Put(ctx, testToken(), 0)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, handle))

	_, err = s.Take(ctx, handle)
	assert.ErrorIs(t, err, serrors.ErrTokenNotFound)
}
