// Package codec converts OAuth request tokens to and from their versioned
// binary form.
//
// Layout, in order:
//
//	int32   format version (currently 1)
//	string  token
//	string  token secret
//	bool    callback confirmed
//	...     property bag, written by a properties.Codec on the same stream
//
// Decoding never panics on bad input. Every failure matches
// errors.ErrDecodeFailed; a *errors.DecodeError tells a version mismatch
// apart from malformed bytes.
package codec

import (
	"fmt"

	"github.com/pilab-dev/requesttoken/domain"
	serrors "github.com/pilab-dev/requesttoken/errors"
	"github.com/pilab-dev/requesttoken/internal/metrics"
	"github.com/pilab-dev/requesttoken/properties"
	"github.com/pilab-dev/requesttoken/wire"
)

// FormatVersion is the version tag written in front of every token.
const FormatVersion int32 = 1

// TokenCodec holds no mutable state and is safe for concurrent use.
type TokenCodec struct {
	props properties.Codec
}

type Option func(*TokenCodec)

// WithPropertiesCodec replaces the default property bag serializer.
func WithPropertiesCodec(c properties.Codec) Option {
	return func(tc *TokenCodec) {
		if c != nil {
			tc.props = c
		}
	}
}

func New(opts ...Option) *TokenCodec {
	tc := &TokenCodec{props: properties.Serializer{}}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// Encode writes t in the current format. The same token always yields the
// same bytes.
func (c *TokenCodec) Encode(t *domain.RequestToken) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: request token is nil", serrors.ErrInvalidArgument)
	}

	w := wire.NewWriter()
	defer w.Release()

	if err := c.write(w, t); err != nil {
		metrics.EncodeTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}

	metrics.EncodeTotal.WithLabelValues(metrics.ResultOK).Inc()
	return w.Bytes(), nil
}

func (c *TokenCodec) write(w *wire.Writer, t *domain.RequestToken) error {
	w.Int32(FormatVersion)
	if err := w.String(t.Token); err != nil {
		return fmt.Errorf("%w: token: %v", serrors.ErrInvalidArgument, err)
	}
	if err := w.String(t.TokenSecret); err != nil {
		return fmt.Errorf("%w: token secret: %v", serrors.ErrInvalidArgument, err)
	}
	w.Bool(t.CallbackConfirmed)
	if err := c.props.Write(w, t.Properties); err != nil {
		return fmt.Errorf("%w: %v", serrors.ErrInvalidArgument, err)
	}
	return nil
}

// Decode reads a token written by Encode. A nil slice is an invalid
// argument; anything else that cannot be read yields a *errors.DecodeError.
// Bytes after the property bag are ignored.
func (c *TokenCodec) Decode(data []byte) (*domain.RequestToken, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: data is nil", serrors.ErrInvalidArgument)
	}

	t, derr := c.read(wire.NewReader(data))
	if derr != nil {
		metrics.DecodeTotal.WithLabelValues(derr.Reason.String()).Inc()
		return nil, derr
	}

	metrics.DecodeTotal.WithLabelValues(metrics.ResultOK).Inc()
	return t, nil
}

// TryDecode collapses every failure, including a nil input, into ok=false.
func (c *TokenCodec) TryDecode(data []byte) (*domain.RequestToken, bool) {
	t, err := c.Decode(data)
	if err != nil {
		return nil, false
	}
	return t, true
}

func (c *TokenCodec) read(r *wire.Reader) (*domain.RequestToken, *serrors.DecodeError) {
	version, err := r.Int32()
	if err != nil {
		return nil, serrors.NewMalformed(fmt.Errorf("format version: %w", err))
	}
	if version != FormatVersion {
		return nil, serrors.NewVersionMismatch(version)
	}

	token, err := r.String()
	if err != nil {
		return nil, serrors.NewMalformed(fmt.Errorf("token: %w", err))
	}
	secret, err := r.String()
	if err != nil {
		return nil, serrors.NewMalformed(fmt.Errorf("token secret: %w", err))
	}
	confirmed, err := r.Bool()
	if err != nil {
		return nil, serrors.NewMalformed(fmt.Errorf("callback confirmed: %w", err))
	}

	props, err := c.props.Read(r)
	if err != nil {
		return nil, serrors.NewMalformed(fmt.Errorf("property bag: %w", err))
	}
	if props == nil {
		return nil, serrors.NewMalformed(fmt.Errorf("property bag: codec returned no properties"))
	}

	return &domain.RequestToken{
		Token:             token,
		TokenSecret:       secret,
		CallbackConfirmed: confirmed,
		Properties:        props,
	}, nil
}
