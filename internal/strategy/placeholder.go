package strategy

import (
	"context"

	"github.com/masterlab/api/internal/audio"
	"github.com/masterlab/api/internal/dsp"
	"github.com/masterlab/api/internal/model"
)

// Placeholder tone shape: one second of A440 with short fades so every job
// ends with something playable even when the upload was garbage.
const (
	placeholderFreqHz    = 440.0
	placeholderDuration  = 1.0
	placeholderAmplitude = 0.5
	placeholderFadeMs    = 30.0
)

// PlaceholderTone synthesizes a fixed tone independent of the input. It runs
// only when the target itself failed to decode.
type PlaceholderTone struct{}

func NewPlaceholderTone() *PlaceholderTone { return &PlaceholderTone{} }

func (s *PlaceholderTone) Name() model.StrategyTag { return model.StrategyPlaceholderTone }

func (s *PlaceholderTone) CanRun(in Input) (bool, string) {
	if in.Target != nil {
		return false, "target decoded; placeholder not needed"
	}
	return true, ""
}

func (s *PlaceholderTone) Attempt(ctx context.Context, in Input) (*audio.Buffer, error) {
	return dsp.Tone(
		placeholderFreqHz,
		placeholderDuration,
		audio.CanonicalSampleRate,
		audio.CanonicalChannels,
		placeholderAmplitude,
		placeholderFadeMs,
	), nil
}
