package strategy

import (
	"context"

	"github.com/masterlab/api/internal/audio"
	"github.com/masterlab/api/internal/dsp"
	"github.com/masterlab/api/internal/model"
)

// LoudnessOnly applies nothing but a normalize to the fixed default target.
// It backstops the parametric chain.
type LoudnessOnly struct{}

func NewLoudnessOnly() *LoudnessOnly { return &LoudnessOnly{} }

func (s *LoudnessOnly) Name() model.StrategyTag { return model.StrategyLoudnessOnly }

func (s *LoudnessOnly) CanRun(in Input) (bool, string) {
	if in.Target == nil {
		return false, "target did not decode"
	}
	return true, ""
}

func (s *LoudnessOnly) Attempt(ctx context.Context, in Input) (*audio.Buffer, error) {
	return dsp.NormalizeToLevel(in.Target, model.DefaultLoudnessDbfs), nil
}
