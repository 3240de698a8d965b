// Package decoder defines the plugin contract shared by every QR decoding
// backend under benchmark, and the name-keyed registry that holds them for
// the duration of a run.
//
// A new backend is added by implementing Decoder and registering it under a
// unique name; the runner needs no change. For one-off backends Func adapts
// a plain function:
//
//	reg := decoder.NewRegistry()
//	err := reg.Register(decoder.Func("mine", func(data []byte) (decoder.Result, error) {
//		return decoder.Result{}, fmt.Errorf("not implemented: %w", decoder.ErrNotFound)
//	}))
package decoder

import (
	"errors"
	"fmt"
)

// Failure causes. Backends wrap one of these so failures can be labelled in
// the raw output; aggregation only looks at success or failure.
var (
	ErrNotFound  = errors.New("no code found")
	ErrMalformed = errors.New("malformed payload")
	ErrInternal  = errors.New("internal decoder error")
	// ErrTimeout is never returned by a backend. The runner records it when
	// a per-attempt deadline elapses.
	ErrTimeout = errors.New("decode timed out")
)

// Decoder attempts to extract a QR payload from encoded image bytes.
//
// Implementations must be safe to call repeatedly and from more than one
// goroutine. Any caching is the implementation's private concern and must
// not change the outcome of later calls.
type Decoder interface {
	Name() string
	Decode(data []byte) (Result, error)
}

// Point is a pixel coordinate in the source image.
type Point struct {
	X float64
	Y float64
}

// Result is a successful decode.
type Result struct {
	Text string
	// Corners holds the code's bounding quad ordered top-left, top-right,
	// bottom-right, bottom-left. Nil when the backend does not report it.
	Corners []Point
}

// FailureKind labels the cause of a failed decode.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureNotFound  FailureKind = "not_found"
	FailureMalformed FailureKind = "malformed"
	FailureInternal  FailureKind = "internal"
	FailureTimeout   FailureKind = "timeout"
)

// Classify maps a decode error to its FailureKind. Errors that wrap none of
// the package sentinels are treated as internal.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrNotFound):
		return FailureNotFound
	case errors.Is(err, ErrMalformed):
		return FailureMalformed
	case errors.Is(err, ErrTimeout):
		return FailureTimeout
	default:
		return FailureInternal
	}
}

type funcDecoder struct {
	name string
	fn   func(data []byte) (Result, error)
}

// Func returns a Decoder named name that delegates to fn.
func Func(name string, fn func(data []byte) (Result, error)) Decoder {
	return &funcDecoder{name: name, fn: fn}
}

func (f *funcDecoder) Name() string { return f.name }

func (f *funcDecoder) Decode(data []byte) (Result, error) {
	if f.fn == nil {
		return Result{}, fmt.Errorf("%s: no decode function: %w",
			f.name, ErrInternal)
	}

	return f.fn(data)
}
