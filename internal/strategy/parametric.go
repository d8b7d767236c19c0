package strategy

import (
	"context"
	"fmt"
	"log"

	"github.com/masterlab/api/internal/audio"
	"github.com/masterlab/api/internal/dsp"
	"github.com/masterlab/api/internal/model"
)

// Parametric chain constants. Dials are 0–10 with 5 neutral; each dial step
// away from neutral moves its shelf by shelfDbPerStep dB.
const (
	bassCutoffHz   = 250.0
	trebleCutoffHz = 4000.0
	shelfDbPerStep = 1.2

	compThresholdDb = -20.0
	compWindowMs    = 50.0
)

// Parametric is the parameter-driven DSP chain: EQ, compression, stereo
// width, then a final loudness normalize. Sub-step failures are skipped
// locally — partial mastering beats none — so the strategy itself only
// fails on a panic-free chain producing nothing, which cannot happen.
type Parametric struct{}

func NewParametric() *Parametric { return &Parametric{} }

func (s *Parametric) Name() model.StrategyTag { return model.StrategyParametric }

func (s *Parametric) CanRun(in Input) (bool, string) {
	if in.Target == nil {
		return false, "target did not decode"
	}
	return true, ""
}

func (s *Parametric) Attempt(ctx context.Context, in Input) (*audio.Buffer, error) {
	p := in.Params
	buf := in.Target

	steps := []struct {
		name string
		fn   func(*audio.Buffer) *audio.Buffer
	}{
		{"eq_bass", func(b *audio.Buffer) *audio.Buffer {
			return shelf(b, bassCutoffHz, (p.BassBoost-model.DialMid)*shelfDbPerStep, true)
		}},
		{"eq_treble", func(b *audio.Buffer) *audio.Buffer {
			return shelf(b, trebleCutoffHz, (p.Brightness-model.DialMid)*shelfDbPerStep, false)
		}},
		{"compression", func(b *audio.Buffer) *audio.Buffer {
			if p.Compression <= 0 {
				return b
			}
			ratio := 1 + p.Compression*0.4 // dial 5 -> 3:1, dial 10 -> 5:1
			return dsp.Compress(b, compThresholdDb, ratio, compWindowMs)
		}},
		{"stereo_width", func(b *audio.Buffer) *audio.Buffer {
			return dsp.StereoWidth(b, p.StereoWidth/model.DialMid)
		}},
		{"normalize", func(b *audio.Buffer) *audio.Buffer {
			return dsp.NormalizeToLevel(b, p.TargetLoudnessDbfs)
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Strategy: s.Name(), Cause: err}
		}
		next, err := runStep(step.fn, buf)
		if err != nil {
			// Skip the broken sub-step, keep the chain going.
			log.Printf("Parametric sub-step %s skipped: %v", step.name, err)
			continue
		}
		buf = next
	}
	return buf, nil
}

// shelf isolates one band, gains it, and recombines with the residual.
// A zero gain is an identity and short-circuits.
func shelf(buf *audio.Buffer, cutoffHz, gainDb float64, lowBand bool) *audio.Buffer {
	if gainDb == 0 {
		return buf
	}
	low, high := dsp.BandSplit(buf, cutoffHz)
	if lowBand {
		return dsp.Add(dsp.Gain(low, gainDb), high)
	}
	return dsp.Add(low, dsp.Gain(high, gainDb))
}

// runStep executes one sub-step and converts a panic into an error so a
// single broken stage never takes down the whole strategy.
func runStep(fn func(*audio.Buffer) *audio.Buffer, buf *audio.Buffer) (out *audio.Buffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sub-step panicked: %v", r)
		}
	}()
	out = fn(buf)
	if out == nil || out.Frames() == 0 {
		return nil, fmt.Errorf("sub-step produced empty output")
	}
	return out, nil
}
