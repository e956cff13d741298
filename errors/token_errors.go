package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when a required argument is missing,
	// before any byte is read or written.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDecodeFailed is matched by every decode failure, whatever the reason.
	ErrDecodeFailed = errors.New("request token could not be decoded")

	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrMalformedInput     = errors.New("malformed input")

	ErrTokenNotFound = errors.New("request token not found")
	ErrProtection    = errors.New("data protection failed")
)

// DecodeReason tells apart the two ways a decode can fail.
type DecodeReason int

const (
	ReasonMalformedInput DecodeReason = iota + 1
	ReasonUnsupportedVersion
)

func (r DecodeReason) String() string {
	switch r {
	case ReasonUnsupportedVersion:
		return "unsupported_version"
	case ReasonMalformedInput:
		return "malformed"
	default:
		return "unknown"
	}
}

// DecodeError is the failure variant of a decode. It matches ErrDecodeFailed
// and the sentinel of its reason with errors.Is.
type DecodeError struct {
	Reason DecodeReason
	// Version holds the tag that was read when Reason is ReasonUnsupportedVersion.
	Version int32
	Err     error
}

// NewVersionMismatch builds the error for an unknown format version tag.
func NewVersionMismatch(got int32) *DecodeError {
	return &DecodeError{Reason: ReasonUnsupportedVersion, Version: got}
}

// NewMalformed wraps a low-level read failure.
func NewMalformed(cause error) *DecodeError {
	return &DecodeError{Reason: ReasonMalformedInput, Err: cause}
}

func (e *DecodeError) Error() string {
	switch e.Reason {
	case ReasonUnsupportedVersion:
		return fmt.Sprintf("%s: %s %d", ErrDecodeFailed, ErrUnsupportedVersion, e.Version)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", ErrDecodeFailed, ErrMalformedInput, e.Err)
		}
		return fmt.Sprintf("%s: %s", ErrDecodeFailed, ErrMalformedInput)
	}
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrDecodeFailed:
		return true
	case ErrUnsupportedVersion:
		return e.Reason == ReasonUnsupportedVersion
	case ErrMalformedInput:
		return e.Reason == ReasonMalformedInput
	}
	return false
}
