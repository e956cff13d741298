// Package properties encodes the property bag that rides along with a
// request token. It writes into the caller's stream rather than producing a
// self-delimited blob, so a Read must consume exactly what Write produced.
package properties

import (
	"errors"
	"fmt"

	"github.com/pilab-dev/requesttoken/domain"
	"github.com/pilab-dev/requesttoken/wire"
)

// FormatVersion is the version tag written in front of every bag.
const FormatVersion int32 = 1

// minEntrySize is the smallest encoding of one pair: two empty strings.
const minEntrySize = 2

var (
	// ErrUnknownVersion is the bag's own "cannot decode" signal.
	ErrUnknownVersion = errors.New("properties: unsupported property bag version")
	ErrBadCount       = errors.New("properties: bad entry count")
)

// Codec reads and writes a property bag on a shared stream.
type Codec interface {
	Write(w *wire.Writer, p *domain.Properties) error
	Read(r *wire.Reader) (*domain.Properties, error)
}

// Serializer is the default Codec: version, entry count, then the pairs in
// insertion order.
type Serializer struct{}

var _ Codec = Serializer{}

func (Serializer) Write(w *wire.Writer, p *domain.Properties) error {
	w.Int32(FormatVersion)
	w.Int32(int32(p.Len()))

	var err error
	p.Range(func(k, v string) bool {
		if err = w.String(k); err != nil {
			err = fmt.Errorf("properties: key %q: %w", k, err)
			return false
		}
		if err = w.String(v); err != nil {
			err = fmt.Errorf("properties: value of %q: %w", k, err)
			return false
		}
		return true
	})
	return err
}

func (Serializer) Read(r *wire.Reader) (*domain.Properties, error) {
	version, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("properties: version: %w", err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, version)
	}

	count, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("properties: count: %w", err)
	}
	if count < 0 || int(count) > r.Remaining()/minEntrySize {
		return nil, fmt.Errorf("%w: %d entries with %d bytes left", ErrBadCount, count, r.Remaining())
	}

	p := domain.NewProperties()
	for i := int32(0); i < count; i++ {
		k, err := r.String()
		if err != nil {
			return nil, fmt.Errorf("properties: key %d: %w", i, err)
		}
		v, err := r.String()
		if err != nil {
			return nil, fmt.Errorf("properties: value %d: %w", i, err)
		}
		p.Set(k, v)
	}
	return p, nil
}
