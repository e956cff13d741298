// Package store keeps encoded request tokens server-side between the
// provider redirect and the callback. A handle, not the token, travels
// through the browser; Take is single-use.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pilab-dev/requesttoken/codec"
	"github.com/pilab-dev/requesttoken/domain"
	serrors "github.com/pilab-dev/requesttoken/errors"
)

// DefaultTTL applies when Put is called with a non-positive ttl and the
// store was not given another default.
const DefaultTTL = 15 * time.Minute

// RequestTokenStore is implemented by every backend.
type RequestTokenStore interface {
	// Put stores token and returns the handle to retrieve it with.
	Put(ctx context.Context, token *domain.RequestToken, ttl time.Duration) (string, error)
	// Take returns the token and removes it. Missing, expired and
	// undecodable entries all yield ErrTokenNotFound.
	Take(ctx context.Context, handle string) (*domain.RequestToken, error)
	Delete(ctx context.Context, handle string) error
	Close() error
}

// NewHandle returns a fresh random handle.
func NewHandle() string {
	return uuid.NewString()
}

// Encode validates the token and ttl and encodes the token with c.
func Encode(c *codec.TokenCodec, token *domain.RequestToken, ttl, def time.Duration) ([]byte, time.Duration, error) {
	if token == nil {
		return nil, 0, fmt.Errorf("%w: request token is nil", serrors.ErrInvalidArgument)
	}
	if ttl <= 0 {
		ttl = def
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	data, err := c.Encode(token)
	if err != nil {
		return nil, 0, err
	}
	return data, ttl, nil
}

// Decode turns stored bytes back into a token. Bytes that no longer decode
// (for example after a format change) count as a missing entry.
func Decode(c *codec.TokenCodec, handle string, data []byte) (*domain.RequestToken, error) {
	t, err := c.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", serrors.ErrTokenNotFound, handle, err)
	}
	return t, nil
}

// NotFound builds the error for a missing or expired handle.
func NotFound(handle string) error {
	return fmt.Errorf("%w: %s", serrors.ErrTokenNotFound, handle)
}
