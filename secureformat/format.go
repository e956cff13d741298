// Package secureformat turns a value into a URL-safe protected string and
// back: serialize, protect, then base64url without padding. It is what
// carries a request token through a cookie or a state parameter.
package secureformat

import (
	"context"
	"encoding/base64"
	"fmt"

	serrors "github.com/pilab-dev/requesttoken/errors"
	"github.com/pilab-dev/requesttoken/internal/metrics"
	"github.com/pilab-dev/requesttoken/log"
)

// Serializer is satisfied by codec.TokenCodec for domain.RequestToken.
type Serializer[T any] interface {
	Encode(v *T) ([]byte, error)
	Decode(data []byte) (*T, error)
}

type Format[T any] struct {
	serializer Serializer[T]
	protector  Protector
	logger     log.Logger
}

// New builds a Format. A nil logger discards output.
func New[T any](s Serializer[T], p Protector, logger log.Logger) *Format[T] {
	if logger == nil {
		logger = log.Nop()
	}
	return &Format[T]{serializer: s, protector: p, logger: logger}
}

func (f *Format[T]) Protect(ctx context.Context, v *T) (string, error) {
	if v == nil {
		return "", fmt.Errorf("%w: value is nil", serrors.ErrInvalidArgument)
	}
	plain, err := f.serializer.Encode(v)
	if err != nil {
		return "", err
	}
	sealed, err := f.protector.Protect(plain)
	if err != nil {
		f.logger.Error(ctx, "Failed to protect payload", err)
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Unprotect reverses Protect. Any failure (bad text, tampering, a payload
// that no longer decodes) returns a nil value and an error; callers treat
// that as "no value".
func (f *Format[T]) Unprotect(ctx context.Context, text string) (*T, error) {
	v, err := f.unprotect(text)
	if err != nil {
		metrics.UnprotectFailuresTotal.Inc()
		f.logger.Debug(ctx, "Discarding protected payload", log.Fields{"error": err.Error()})
		return nil, err
	}
	return v, nil
}

func (f *Format[T]) unprotect(text string) (*T, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: protected text is empty", serrors.ErrInvalidArgument)
	}
	sealed, err := base64.RawURLEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: not base64url: %v", serrors.ErrProtection, err)
	}
	plain, err := f.protector.Unprotect(sealed)
	if err != nil {
		return nil, err
	}
	return f.serializer.Decode(plain)
}
