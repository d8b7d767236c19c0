package strategy

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/masterlab/api/internal/audio"
	"github.com/masterlab/api/internal/client"
	"github.com/masterlab/api/internal/model"
)

// ReferenceMatch delegates spectral/level matching against a reference track
// to the external match engine. Highest priority; attempted only when a
// reference decoded successfully and actually differs from the target.
type ReferenceMatch struct {
	processor client.AudioProcessor
}

func NewReferenceMatch(processor client.AudioProcessor) *ReferenceMatch {
	return &ReferenceMatch{processor: processor}
}

func (s *ReferenceMatch) Name() model.StrategyTag { return model.StrategyReferenceMatch }

func (s *ReferenceMatch) CanRun(in Input) (bool, string) {
	if in.Target == nil {
		return false, "target did not decode"
	}
	if in.Reference == nil {
		return false, "no decodable reference"
	}
	if s.processor == nil || !s.processor.IsConfigured() {
		return false, "match engine not configured"
	}
	if sameAudio(in.Target, in.Reference) {
		return false, "reference is audio-identical to target"
	}
	return true, ""
}

func (s *ReferenceMatch) Attempt(ctx context.Context, in Input) (*audio.Buffer, error) {
	targetWav, err := audio.EncodeWAV(in.Target)
	if err != nil {
		return nil, &Error{Strategy: s.Name(), Cause: fmt.Errorf("serializing target: %w", err)}
	}
	refWav, err := audio.EncodeWAV(in.Reference)
	if err != nil {
		return nil, &Error{Strategy: s.Name(), Cause: fmt.Errorf("serializing reference: %w", err)}
	}

	resp, err := s.processor.Match(ctx, &client.MatchRequest{
		TargetWav:          targetWav,
		ReferenceWav:       refWav,
		TargetLoudnessDbfs: in.Params.TargetLoudnessDbfs,
	})
	if err != nil {
		return nil, &Error{Strategy: s.Name(), Cause: err}
	}
	if len(resp.MasteredWav) == 0 {
		return nil, &Error{Strategy: s.Name(), Cause: errors.New("match engine returned empty audio")}
	}

	buf, err := audio.DecodeWAV(bytes.NewReader(resp.MasteredWav))
	if err != nil {
		return nil, &Error{Strategy: s.Name(), Cause: fmt.Errorf("decoding match engine output: %w", err)}
	}
	if buf.Frames() == 0 {
		return nil, &Error{Strategy: s.Name(), Cause: audio.ErrEmptyAudio}
	}
	return audio.Canonicalize(buf), nil
}
