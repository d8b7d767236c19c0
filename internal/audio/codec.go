package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/masterlab/api/internal/model"
)

// Codec is the file-level adapter consumed by the orchestrator.
type Codec struct{}

// NewCodec returns the default codec adapter.
func NewCodec() *Codec { return &Codec{} }

// Decode reads path and returns canonical PCM (44.1kHz stereo 16-bit).
// Container detection sniffs the header first and only then trusts the file
// extension. Every failure is reported as a *DecodeError so callers can tell
// it apart from strategy-internal errors.
func (c *Codec) Decode(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if len(data) == 0 {
		return nil, &DecodeError{Path: path, Err: ErrEmptyAudio}
	}

	var buf *Buffer
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		buf, err = DecodeWAV(bytes.NewReader(data))
	case looksLikeMP3(data) || strings.HasSuffix(strings.ToLower(path), ".mp3"):
		buf, err = DecodeMP3(bytes.NewReader(data))
	default:
		// Last resort: some encoders ship wav payloads under odd names.
		buf, err = DecodeWAV(bytes.NewReader(data))
	}
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if buf.Frames() == 0 {
		return nil, &DecodeError{Path: path, Err: ErrEmptyAudio}
	}
	return Canonicalize(buf), nil
}

func looksLikeMP3(data []byte) bool {
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return true
	}
	// frame sync: 11 set bits
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

// Encode serializes canonical PCM into the requested export format. MP3
// needs the external encoder service; without it the caller gets an
// EncodeError and falls back to raw canonical WAV bytes.
func (c *Codec) Encode(buf *Buffer, format model.ExportFormat) ([]byte, error) {
	switch format {
	case model.FormatWAV, "":
		return EncodeWAV(buf)
	case model.FormatMP3:
		return nil, &EncodeError{Format: "mp3", Err: errors.New("mp3 encoding requires the encoder service")}
	default:
		return nil, &EncodeError{Format: string(format), Err: fmt.Errorf("unknown export format")}
	}
}

// Canonicalize converts a buffer to canonical rate and channel count. The
// input is not mutated.
func Canonicalize(buf *Buffer) *Buffer {
	if buf.IsCanonical() && buf.BitDepth == CanonicalBitDepth {
		return buf
	}
	out := &Buffer{
		SampleRate: CanonicalSampleRate,
		BitDepth:   CanonicalBitDepth,
	}

	// Channel layout first: mono duplicates, >2 folds down to stereo.
	var left, right []float64
	switch buf.Channels() {
	case 1:
		left, right = buf.Samples[0], buf.Samples[0]
	case 2:
		left, right = buf.Samples[0], buf.Samples[1]
	default:
		frames := buf.Frames()
		left = make([]float64, frames)
		right = make([]float64, frames)
		n := float64(buf.Channels())
		for f := 0; f < frames; f++ {
			var sum float64
			for c := 0; c < buf.Channels(); c++ {
				sum += buf.Samples[c][f]
			}
			left[f] = sum / n
			right[f] = sum / n
		}
	}

	out.Samples = [][]float64{
		resampleLinear(left, buf.SampleRate, CanonicalSampleRate),
		resampleLinear(right, buf.SampleRate, CanonicalSampleRate),
	}
	return out
}

// resampleLinear converts ch from one rate to another by linear
// interpolation. Adequate for canonicalization; a polyphase design would be
// the upgrade path if aliasing ever shows up in listening tests.
func resampleLinear(ch []float64, from, to int) []float64 {
	if from == to || from <= 0 || len(ch) == 0 {
		out := make([]float64, len(ch))
		copy(out, ch)
		return out
	}
	ratio := float64(from) / float64(to)
	frames := int(float64(len(ch)) / ratio)
	if frames < 1 {
		frames = 1
	}
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(ch)-1 {
			out[i] = ch[len(ch)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = ch[j]*(1-frac) + ch[j+1]*frac
	}
	return out
}
