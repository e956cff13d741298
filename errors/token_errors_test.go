package errors

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeError_VersionMismatch(t *testing.T) {
	var err error = NewVersionMismatch(3)

	assert.ErrorIs(t, err, ErrDecodeFailed)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
	assert.NotErrorIs(t, err, ErrMalformedInput)
	assert.EqualError(t, err, "request token could not be decoded: unsupported format version 3")
}

func TestDecodeError_Malformed(t *testing.T) {
	err := fmt.Errorf("reading blob: %w", NewMalformed(io.ErrUnexpectedEOF))

	assert.ErrorIs(t, err, ErrDecodeFailed)
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.NotErrorIs(t, err, ErrUnsupportedVersion)

	var derr *DecodeError
	assert.True(t, errors.As(err, &derr))
	assert.Equal(t, ReasonMalformedInput, derr.Reason)
	assert.Equal(t, "malformed", derr.Reason.String())
}
