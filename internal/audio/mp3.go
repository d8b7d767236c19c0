package audio

import (
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 decodes an MPEG-1 Layer III stream. go-mp3 always emits
// interleaved 16-bit LE stereo at the stream's native sample rate.
func DecodeMP3(r io.Reader) (*Buffer, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	var left, right []float64
	chunk := make([]byte, 8192)
	for {
		n, err := dec.Read(chunk)
		if n > 0 {
			// one frame = 4 bytes: L int16, R int16
			for i := 0; i+3 < n; i += 4 {
				l := int16(chunk[i]) | int16(chunk[i+1])<<8
				r := int16(chunk[i+2]) | int16(chunk[i+3])<<8
				left = append(left, float64(l)/32768)
				right = append(right, float64(r)/32768)
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
	}

	if len(left) == 0 {
		return nil, ErrEmptyAudio
	}
	return &Buffer{
		Samples:    [][]float64{left, right},
		SampleRate: dec.SampleRate(),
		BitDepth:   16,
	}, nil
}
