package dsp

import (
	"math"
	"testing"

	"github.com/masterlab/api/internal/audio"
)

func sine(amp float64, dur float64) *audio.Buffer {
	return Tone(440, dur, audio.CanonicalSampleRate, audio.CanonicalChannels, amp, 0)
}

func TestMeasureLevel_FullScaleSine(t *testing.T) {
	// RMS of a full-scale sine is 1/sqrt(2) = -3.01 dBFS
	buf := sine(1.0, 1.0)
	level := MeasureLevel(buf)
	if math.Abs(level-(-3.01)) > 0.05 {
		t.Errorf("expected about -3.01 dBFS, got %.3f", level)
	}
}

func TestMeasureLevel_Silence(t *testing.T) {
	buf := audio.NewBuffer(2, 1000, audio.CanonicalSampleRate)
	if level := MeasureLevel(buf); level != SilenceFloorDbfs {
		t.Errorf("expected silence floor, got %.3f", level)
	}
}

func TestGain_ScalesByDb(t *testing.T) {
	buf := sine(0.1, 0.5)
	out := Gain(buf, 6)
	want := 0.1 * DbToLinear(6)
	var peak float64
	for _, v := range out.Samples[0] {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if math.Abs(peak-want) > 1e-6 {
		t.Errorf("expected peak %.6f, got %.6f", want, peak)
	}
}

func TestGain_DoesNotMutateInput(t *testing.T) {
	buf := sine(0.5, 0.1)
	before := buf.Samples[0][100]
	Gain(buf, 12)
	if buf.Samples[0][100] != before {
		t.Error("input buffer was mutated")
	}
}

func TestGain_SoftClipsOverload(t *testing.T) {
	buf := sine(0.9, 0.1)
	out := Gain(buf, 20)
	for _, ch := range out.Samples {
		for i, v := range ch {
			if math.Abs(v) > 1.0 {
				t.Fatalf("sample %d overflowed full scale: %f", i, v)
			}
		}
	}
}

func TestBandSplit_Reconstructs(t *testing.T) {
	buf := sine(0.5, 0.2)
	low, high := BandSplit(buf, 250)
	sum := Add(low, high)
	for c := range buf.Samples {
		for i := range buf.Samples[c] {
			if math.Abs(sum.Samples[c][i]-buf.Samples[c][i]) > 1e-9 {
				t.Fatalf("recombined sample %d/%d diverged", c, i)
			}
		}
	}
}

func TestBandSplit_SeparatesEnergy(t *testing.T) {
	lowTone := Tone(100, 0.5, audio.CanonicalSampleRate, 2, 0.5, 0)
	low, high := BandSplit(lowTone, 1000)
	if MeasureLevel(low) <= MeasureLevel(high) {
		t.Error("a 100Hz tone should land mostly in the low band of a 1kHz split")
	}
}

func TestNormalizeToLevel(t *testing.T) {
	buf := sine(1.0, 1.0)
	out := NormalizeToLevel(buf, -14)
	if level := MeasureLevel(out); math.Abs(level-(-14)) > 0.1 {
		t.Errorf("expected -14 dBFS, got %.3f", level)
	}
}

func TestNormalizeToLevel_Idempotent(t *testing.T) {
	buf := sine(1.0, 0.5)
	once := NormalizeToLevel(buf, -14)
	twice := NormalizeToLevel(once, -14)
	for c := range once.Samples {
		for i := range once.Samples[c] {
			if math.Abs(twice.Samples[c][i]-once.Samples[c][i]) > 1e-9 {
				t.Fatal("normalizing an already-normalized buffer must be a no-op")
			}
		}
	}
}

func TestNormalizeToLevel_SilencePassesThrough(t *testing.T) {
	buf := audio.NewBuffer(2, 500, audio.CanonicalSampleRate)
	out := NormalizeToLevel(buf, -14)
	if out.Frames() != 500 {
		t.Fatalf("expected 500 frames, got %d", out.Frames())
	}
	if out.Samples[0][250] != 0 {
		t.Error("silent input should stay silent")
	}
}

func TestCompress_ReducesLoudWindows(t *testing.T) {
	buf := sine(1.0, 1.0) // about -3 dBFS, well above threshold
	out := Compress(buf, -20, 4, 50)
	in, post := MeasureLevel(buf), MeasureLevel(out)
	if post >= in-5 {
		t.Errorf("expected significant gain reduction, got %.2f -> %.2f", in, post)
	}
}

func TestCompress_LeavesQuietAudioAlone(t *testing.T) {
	buf := sine(0.01, 0.5) // about -43 dBFS
	out := Compress(buf, -20, 4, 50)
	if math.Abs(MeasureLevel(out)-MeasureLevel(buf)) > 0.01 {
		t.Error("audio below threshold should be untouched")
	}
}

func TestStereoWidth_MonoBlend(t *testing.T) {
	buf := sine(0.5, 0.1)
	// decorrelate the channels first
	for i := range buf.Samples[1] {
		buf.Samples[1][i] = -buf.Samples[1][i]
	}
	out := StereoWidth(buf, 0)
	for i := range out.Samples[0] {
		if math.Abs(out.Samples[0][i]-out.Samples[1][i]) > 1e-9 {
			t.Fatal("factor 0 should collapse to mono")
		}
	}
}

func TestStereoWidth_NeutralIsIdentity(t *testing.T) {
	buf := sine(0.5, 0.1)
	out := StereoWidth(buf, 1)
	for c := range buf.Samples {
		for i := range buf.Samples[c] {
			if out.Samples[c][i] != buf.Samples[c][i] {
				t.Fatal("factor 1 must not change samples")
			}
		}
	}
}

func TestTone_FadesEdges(t *testing.T) {
	buf := Tone(440, 1.0, audio.CanonicalSampleRate, 2, 0.5, 30)
	if buf.Frames() != audio.CanonicalSampleRate {
		t.Fatalf("expected 1s of frames, got %d", buf.Frames())
	}
	if buf.Samples[0][0] != 0 {
		t.Error("fade-in should start at zero")
	}
	if buf.Samples[0][buf.Frames()-1] != 0 {
		t.Error("fade-out should end at zero")
	}
}
