// Package dsp provides pure functions on PCM buffers. Every operation
// returns a new buffer and leaves its input untouched.
package dsp

import (
	"math"

	"github.com/masterlab/api/internal/audio"
)

// SilenceFloorDbfs is reported for buffers with no measurable energy.
const SilenceFloorDbfs = -120.0

// DbToLinear converts decibels to a linear factor.
func DbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDb converts a linear factor to decibels.
func LinearToDb(v float64) float64 {
	if v <= 0 {
		return SilenceFloorDbfs
	}
	return 20 * math.Log10(v)
}

// Gain scales the buffer by db decibels. Samples pushed past full scale are
// soft-clipped instead of wrapping: the region above the knee is squashed
// toward 1.0 so overload distorts gently rather than overflowing on encode.
func Gain(buf *audio.Buffer, db float64) *audio.Buffer {
	factor := DbToLinear(db)
	out := buf.Clone()
	for _, ch := range out.Samples {
		for i, v := range ch {
			ch[i] = softClip(v * factor)
		}
	}
	return out
}

const clipKnee = 0.95

func softClip(v float64) float64 {
	a := math.Abs(v)
	if a <= clipKnee {
		return v
	}
	// map (knee, inf) onto (knee, 1)
	c := clipKnee + (1-clipKnee)*math.Tanh((a-clipKnee)/(1-clipKnee))
	return math.Copysign(c, v)
}

// BandSplit separates the buffer at cutoffHz into low and high bands using a
// one-pole lowpass; high is the residual, so Add(low, high) reconstructs the
// input exactly.
func BandSplit(buf *audio.Buffer, cutoffHz float64) (*audio.Buffer, *audio.Buffer) {
	low := buf.Clone()
	high := buf.Clone()
	alpha := onePoleAlpha(cutoffHz, buf.SampleRate)
	for c := range buf.Samples {
		var acc float64
		for i, v := range buf.Samples[c] {
			acc += alpha * (v - acc)
			low.Samples[c][i] = acc
			high.Samples[c][i] = v - acc
		}
	}
	return low, high
}

func onePoleAlpha(cutoffHz float64, sampleRate int) float64 {
	if cutoffHz <= 0 || sampleRate <= 0 {
		return 1
	}
	rc := 1 / (2 * math.Pi * cutoffHz)
	dt := 1 / float64(sampleRate)
	return dt / (rc + dt)
}

// Add recombines two buffers by sample-wise addition. Shapes must match;
// mismatched buffers return a clone of a.
func Add(a, b *audio.Buffer) *audio.Buffer {
	out := a.Clone()
	if b.Channels() != a.Channels() || b.Frames() != a.Frames() {
		return out
	}
	for c := range out.Samples {
		for i := range out.Samples[c] {
			out.Samples[c][i] += b.Samples[c][i]
		}
	}
	return out
}

// MeasureLevel returns the RMS level of the buffer in dBFS. This is an
// approximation of loudness, not EBU R128 / LUFS.
func MeasureLevel(buf *audio.Buffer) float64 {
	var sum float64
	var n int
	for _, ch := range buf.Samples {
		for _, v := range ch {
			sum += v * v
		}
		n += len(ch)
	}
	if n == 0 {
		return SilenceFloorDbfs
	}
	return LinearToDb(math.Sqrt(sum / float64(n)))
}

// NormalizeToLevel measures the buffer and applies the gain needed to land
// on targetDbfs. Silent input is returned unchanged.
func NormalizeToLevel(buf *audio.Buffer, targetDbfs float64) *audio.Buffer {
	level := MeasureLevel(buf)
	if level <= SilenceFloorDbfs {
		return buf.Clone()
	}
	return Gain(buf, targetDbfs-level)
}

// compressFadeMs is the edge crossfade between adjacent gain windows,
// keeping gain steps from clicking.
const compressFadeMs = 5.0

// Compress applies windowed downward compression: windows whose RMS exceeds
// thresholdDb get gain reduction = excess * (1 - 1/ratio). Window gains are
// crossfaded at the edges.
func Compress(buf *audio.Buffer, thresholdDb, ratio float64, windowMs float64) *audio.Buffer {
	out := buf.Clone()
	if ratio <= 1 || windowMs <= 0 || buf.Frames() == 0 {
		return out
	}
	window := int(float64(buf.SampleRate) * windowMs / 1000)
	if window < 1 {
		window = 1
	}
	fade := int(float64(buf.SampleRate) * compressFadeMs / 1000)
	if fade > window/2 {
		fade = window / 2
	}

	frames := buf.Frames()
	nWindows := (frames + window - 1) / window

	// Per-window gain factors, computed over all channels together.
	gains := make([]float64, nWindows)
	for w := 0; w < nWindows; w++ {
		start := w * window
		end := start + window
		if end > frames {
			end = frames
		}
		var sum float64
		var n int
		for _, ch := range buf.Samples {
			for i := start; i < end; i++ {
				sum += ch[i] * ch[i]
			}
			n += end - start
		}
		gains[w] = 1
		if n == 0 {
			continue
		}
		level := LinearToDb(math.Sqrt(sum / float64(n)))
		if level > thresholdDb {
			reduction := (level - thresholdDb) * (1 - 1/ratio)
			gains[w] = DbToLinear(-reduction)
		}
	}

	for c := range out.Samples {
		prev := gains[0]
		for w := 0; w < nWindows; w++ {
			start := w * window
			end := start + window
			if end > frames {
				end = frames
			}
			g := gains[w]
			for i := start; i < end; i++ {
				gain := g
				if fade > 0 && i-start < fade {
					// ramp from the previous window's gain
					t := float64(i-start) / float64(fade)
					gain = prev*(1-t) + g*t
				}
				out.Samples[c][i] = buf.Samples[c][i] * gain
			}
			prev = g
		}
	}
	return out
}

// StereoWidth adjusts the stereo image via mid/side processing. factor > 1
// widens, factor < 1 blends toward mono, factor == 1 is a no-op. Mono
// buffers are returned unchanged.
func StereoWidth(buf *audio.Buffer, factor float64) *audio.Buffer {
	out := buf.Clone()
	if buf.Channels() != 2 || factor == 1 {
		return out
	}
	if factor < 0 {
		factor = 0
	}
	left, right := buf.Samples[0], buf.Samples[1]
	for i := range left {
		mid := (left[i] + right[i]) / 2
		side := (left[i] - right[i]) / 2 * factor
		out.Samples[0][i] = softClip(mid + side)
		out.Samples[1][i] = softClip(mid - side)
	}
	return out
}

// Tone synthesizes a sine at freqHz with linear fade-in/out edges. Used by
// the placeholder strategy and by tests as a known-level source.
func Tone(freqHz float64, dur float64, sampleRate, channels int, amplitude float64, fadeMs float64) *audio.Buffer {
	frames := int(dur * float64(sampleRate))
	if frames < 1 {
		frames = 1
	}
	buf := audio.NewBuffer(channels, frames, sampleRate)
	fade := int(fadeMs / 1000 * float64(sampleRate))
	if fade > frames/2 {
		fade = frames / 2
	}
	for i := 0; i < frames; i++ {
		v := amplitude * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate))
		if fade > 0 {
			if i < fade {
				v *= float64(i) / float64(fade)
			}
			if frames-1-i < fade {
				v *= float64(frames-1-i) / float64(fade)
			}
		}
		for c := 0; c < channels; c++ {
			buf.Samples[c][i] = v
		}
	}
	return buf
}
