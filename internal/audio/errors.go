package audio

import (
	"errors"
	"fmt"
)

// ErrEmptyAudio marks input that decoded to zero frames.
var ErrEmptyAudio = errors.New("audio contains no frames")

// DecodeError is the dominant error source: the input container could not be
// turned into canonical PCM. The orchestrator treats it differently from
// strategy-internal failure (skip straight to the placeholder tone).
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError marks a failure producing the export container. It is always
// recoverable: the orchestrator falls back to raw canonical PCM bytes.
type EncodeError struct {
	Format string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is (or wraps) a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
