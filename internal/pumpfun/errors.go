package pumpfun

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a decode failure.
type ErrorKind int

const (
	// NotMatching means the bytes belong to another instruction or account type.
	NotMatching ErrorKind = iota + 1
	// Malformed means the bytes carry the right discriminator but cannot be decoded.
	Malformed
)

func (k ErrorKind) String() string {
	switch k {
	case NotMatching:
		return "not matching"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is.
var (
	ErrNotMatching = errors.New("pumpfun: discriminator not matching")
	ErrMalformed   = errors.New("pumpfun: malformed data")
)

// DecodeError is returned by DecodeCreate and DecodeCurve.
type DecodeError struct {
	Kind   ErrorKind
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Reason == "" {
		return "pumpfun: " + e.Kind.String()
	}
	return fmt.Sprintf("pumpfun: %s: %s", e.Kind, e.Reason)
}

// Is matches ErrNotMatching and ErrMalformed by kind.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrNotMatching:
		return e.Kind == NotMatching
	case ErrMalformed:
		return e.Kind == Malformed
	}
	return false
}

func malformed(format string, args ...interface{}) error {
	return &DecodeError{Kind: Malformed, Reason: fmt.Sprintf(format, args...)}
}

func notMatching(reason string) error {
	return &DecodeError{Kind: NotMatching, Reason: reason}
}
