package audio

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func sineBuffer(channels, frames, rate int, amp float64) *Buffer {
	buf := NewBuffer(channels, frames, rate)
	for c := 0; c < channels; c++ {
		for i := 0; i < frames; i++ {
			buf.Samples[c][i] = amp * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
		}
	}
	return buf
}

func TestWAVRoundTrip(t *testing.T) {
	in := sineBuffer(2, 2000, CanonicalSampleRate, 0.8)
	data, err := EncodeWAV(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	out, err := DecodeWAV(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Channels() != 2 || out.Frames() != 2000 || out.SampleRate != CanonicalSampleRate {
		t.Fatalf("shape changed: %d ch, %d frames @ %d Hz", out.Channels(), out.Frames(), out.SampleRate)
	}
	if out.BitDepth != 16 {
		t.Errorf("expected 16-bit payload, got %d", out.BitDepth)
	}
	// allow one LSB of quantization noise
	const eps = 1.0 / 32768
	for c := range in.Samples {
		for i := range in.Samples[c] {
			if math.Abs(out.Samples[c][i]-in.Samples[c][i]) > eps {
				t.Fatalf("sample %d/%d drifted: %f vs %f", c, i, out.Samples[c][i], in.Samples[c][i])
			}
		}
	}
}

func TestDecodeWAV_RejectsGarbage(t *testing.T) {
	if _, err := DecodeWAV(bytes.NewReader([]byte("this is not audio at all, sorry"))); err == nil {
		t.Fatal("expected an error for non-RIFF input")
	}
}

func TestDecodeWAV_RejectsEmptyData(t *testing.T) {
	buf := sineBuffer(2, 100, CanonicalSampleRate, 0.5)
	data, _ := EncodeWAV(buf)
	// keep the header, drop the whole data payload
	if _, err := DecodeWAV(bytes.NewReader(data[:44])); !errors.Is(err, ErrEmptyAudio) {
		t.Fatalf("expected ErrEmptyAudio, got %v", err)
	}
}

func TestDecodeWAV_ToleratesTruncatedData(t *testing.T) {
	buf := sineBuffer(2, 1000, CanonicalSampleRate, 0.5)
	data, _ := EncodeWAV(buf)

	out, err := DecodeWAV(bytes.NewReader(data[:len(data)-100]))
	if err != nil {
		t.Fatalf("truncated data chunk should still decode: %v", err)
	}
	if out.Frames() >= 1000 || out.Frames() == 0 {
		t.Errorf("expected a shortened buffer, got %d frames", out.Frames())
	}
}

func TestEncodeWAV_RejectsEmpty(t *testing.T) {
	if _, err := EncodeWAV(nil); err == nil {
		t.Error("nil buffer should not encode")
	}
	if _, err := EncodeWAV(NewBuffer(2, 0, CanonicalSampleRate)); err == nil {
		t.Error("zero-frame buffer should not encode")
	}
}

func TestEncodeWAV_ClipsAtFullScale(t *testing.T) {
	buf := NewBuffer(1, 4, CanonicalSampleRate)
	buf.Samples[0] = []float64{1.5, -1.5, 0.5, 0}

	data, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeWAV(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Samples[0][0] > 1 || out.Samples[0][1] < -1 {
		t.Errorf("over-scale samples must clip, got %f / %f", out.Samples[0][0], out.Samples[0][1])
	}
	if math.Abs(out.Samples[0][2]-0.5) > 1.0/32768 {
		t.Errorf("in-range sample distorted: %f", out.Samples[0][2])
	}
}
