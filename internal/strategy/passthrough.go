package strategy

import (
	"context"

	"github.com/masterlab/api/internal/audio"
	"github.com/masterlab/api/internal/model"
)

// Passthrough returns the canonicalized decoded target unchanged. It always
// succeeds when the target decoded.
type Passthrough struct{}

func NewPassthrough() *Passthrough { return &Passthrough{} }

func (s *Passthrough) Name() model.StrategyTag { return model.StrategyPassthrough }

func (s *Passthrough) CanRun(in Input) (bool, string) {
	if in.Target == nil {
		return false, "target did not decode"
	}
	return true, ""
}

func (s *Passthrough) Attempt(ctx context.Context, in Input) (*audio.Buffer, error) {
	return in.Target.Clone(), nil
}
