// Package strategy implements the mastering approaches tried by the
// fallback orchestrator. Each strategy is pure with respect to shared state
// and individually retryable.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/masterlab/api/internal/audio"
	"github.com/masterlab/api/internal/model"
)

// Input is what a strategy attempt gets to work with. Target is nil when
// the input file failed to decode; Reference is nil when absent or
// undecodable.
type Input struct {
	Params    model.MasteringParams
	Target    *audio.Buffer
	Reference *audio.Buffer
}

// Error is a strategy-level failure. It is always recoverable: the
// orchestrator reacts by moving to the next strategy in the chain.
type Error struct {
	Strategy model.StrategyTag
	Cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("strategy %s: %v", e.Strategy, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// IsTimeout reports whether a strategy failure was a deadline expiry.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// Strategy is the uniform attempt contract shared by all mastering
// approaches.
type Strategy interface {
	Name() model.StrategyTag
	// CanRun reports whether the strategy applies to this input; when it
	// does not, the second value names the skip reason.
	CanRun(in Input) (bool, string)
	// Attempt produces a processed buffer or a strategy-level error.
	Attempt(ctx context.Context, in Input) (*audio.Buffer, error)
}

// sameAudio reports whether two decoded buffers are audio-identical:
// same shape and sample-wise equal within quantization noise.
func sameAudio(a, b *audio.Buffer) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Channels() != b.Channels() || a.Frames() != b.Frames() || a.SampleRate != b.SampleRate {
		return false
	}
	const eps = 1.0 / 32768
	for c := range a.Samples {
		for i := range a.Samples[c] {
			if math.Abs(a.Samples[c][i]-b.Samples[c][i]) > eps {
				return false
			}
		}
	}
	return true
}
