// Package errs defines the closed set of error kinds the resolver, the
// byte-stream transforms, and the scanners surface, one sentinel-wrapped
// constructor per kind.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Callers match with errors.Is.
var (
	ErrUnsupportedType      = errors.New("unsupported type")
	ErrPathSpecError        = errors.New("path spec error")
	ErrNotFound             = errors.New("not found")
	ErrAccessDenied         = errors.New("access denied")
	ErrInvalidData          = errors.New("invalid data")
	ErrCorruptVolume        = errors.New("corrupt volume")
	ErrEncryptedVolumeLocked = errors.New("encrypted volume locked")
	ErrBackEndFailure       = errors.New("back-end failure")
	ErrCancelled            = errors.New("cancelled")
	ErrTimedOut             = errors.New("timed out")
)

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("layerfs: %s: %w", fmt.Sprintf(format, args...), kind)
}

func UnsupportedType(indicator string) error {
	return wrap(ErrUnsupportedType, "no back-end registered for type '%s'", indicator)
}

func PathSpecError(format string, args ...any) error {
	return wrap(ErrPathSpecError, format, args...)
}

func NotFound(location string) error {
	return wrap(ErrNotFound, "'%s' does not exist", location)
}

func AccessDenied(location string) error {
	return wrap(ErrAccessDenied, "access denied for '%s'", location)
}

func InvalidData(format string, args ...any) error {
	return wrap(ErrInvalidData, format, args...)
}

func CorruptVolume(format string, args ...any) error {
	return wrap(ErrCorruptVolume, format, args...)
}

func EncryptedVolumeLocked(comparable string) error {
	return wrap(ErrEncryptedVolumeLocked, "missing or invalid credentials for '%s'", comparable)
}

func BackEndFailure(cause error) error {
	if cause == nil {
		return wrap(ErrBackEndFailure, "back-end returned an opaque failure")
	}
	return fmt.Errorf("layerfs: back-end failure: %w: %w", cause, ErrBackEndFailure)
}

func Cancelled() error {
	return wrap(ErrCancelled, "operation cancelled")
}

func TimedOut() error {
	return wrap(ErrTimedOut, "operation timed out")
}

// Errors accumulates independent failures (one scanner branch at a time)
// and joins them on read.
type Errors struct {
	errs []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}
	e.errs = append(e.errs, err)
}

func (e *Errors) Len() int { return len(e.errs) }

func (e *Errors) Err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return errors.Join(e.errs...)
}
