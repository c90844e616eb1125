// Package errs defines the error taxonomy shared by the synthesis pipeline.
// Every stage fails fast with one of these kinds so callers can classify a
// failure without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindFormat marks malformed subtitle structure or timecodes.
	KindFormat Kind = "format"
	// KindMediaOpen marks an unreadable or undecodable video/audio source.
	KindMediaOpen Kind = "media_open"
	// KindEncode marks codec or container failures.
	KindEncode Kind = "encode"
	// KindIO marks filesystem failures on temp or output paths.
	KindIO Kind = "io"
)

var (
	ErrMissingSeparator = errors.New("timecode line has no \" --> \" separator")
	ErrNoVideoStream    = errors.New("no video stream")
	ErrEmptyTimeline    = errors.New("timeline has no segments")
)

// Error carries the failing operation and path alongside the cause.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s error in %s (%s): %v", e.Kind, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s error in %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, or defers to the cause.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) && other.Op == "" && other.Err == nil {
		return other.Kind == e.Kind
	}
	return false
}

func newError(kind Kind, op, path string, err error) *Error {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func Format(op, path string, err error) *Error {
	return newError(KindFormat, op, path, err)
}

func MediaOpen(op, path string, err error) *Error {
	return newError(KindMediaOpen, op, path, err)
}

func Encode(op, path string, err error) *Error {
	return newError(KindEncode, op, path, err)
}

func IO(op, path string, err error) *Error {
	return newError(KindIO, op, path, err)
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return errors.Is(err, &Error{Kind: kind})
}
