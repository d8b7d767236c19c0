package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	wavFormatPCM       = 1
	wavFormatIEEEFloat = 3
)

// DecodeWAV parses a RIFF/WAVE stream into a Buffer. PCM 8/16/24/32-bit and
// 32-bit float payloads are accepted.
func DecodeWAV(r io.Reader) (*Buffer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE container")
	}

	var (
		format     uint16
		channels   int
		sampleRate int
		bitDepth   int
		haveFmt    bool
		pcm        []byte
	)

	// Chunk walk. Chunks are word-aligned; odd sizes carry a pad byte.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			// Tolerate a truncated final data chunk; reject anything else.
			if id == "data" && body < len(data) {
				size = len(data) - body
			} else {
				return nil, fmt.Errorf("corrupt chunk %q", id)
			}
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, errors.New("fmt chunk too small")
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitDepth = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
		}
		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !haveFmt {
		return nil, errors.New("missing fmt chunk")
	}
	if channels < 1 || channels > 8 || sampleRate <= 0 {
		return nil, fmt.Errorf("unsupported layout: %d channels @ %d Hz", channels, sampleRate)
	}
	if format != wavFormatPCM && format != wavFormatIEEEFloat {
		return nil, fmt.Errorf("unsupported wav format code %d", format)
	}
	if format == wavFormatIEEEFloat && bitDepth != 32 {
		return nil, fmt.Errorf("unsupported float bit depth %d", bitDepth)
	}

	bytesPer := bitDepth / 8
	if bytesPer == 0 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	frames := len(pcm) / (bytesPer * channels)
	if frames == 0 {
		return nil, ErrEmptyAudio
	}

	buf := NewBuffer(channels, frames, sampleRate)
	buf.BitDepth = bitDepth
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			i := (f*channels + c) * bytesPer
			buf.Samples[c][f] = readSample(pcm[i:i+bytesPer], format, bitDepth)
		}
	}
	return buf, nil
}

func readSample(b []byte, format uint16, bitDepth int) float64 {
	if format == wavFormatIEEEFloat {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	switch bitDepth {
	case 8:
		// 8-bit wav is unsigned
		return (float64(b[0]) - 128) / 128
	case 16:
		return float64(int16(binary.LittleEndian.Uint16(b))) / 32768
	case 24:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= ^int32(0xFFFFFF)
		}
		return float64(v) / 8388608
	case 32:
		return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648
	}
	return 0
}

// EncodeWAV serializes a buffer as 16-bit PCM WAV. Samples outside [-1, 1]
// are clipped at full scale.
func EncodeWAV(buf *Buffer) ([]byte, error) {
	if buf == nil || buf.Frames() == 0 {
		return nil, &EncodeError{Format: "wav", Err: ErrEmptyAudio}
	}
	channels := buf.Channels()
	frames := buf.Frames()
	dataSize := frames * channels * 2

	var out bytes.Buffer
	out.Grow(44 + dataSize)
	out.WriteString("RIFF")
	writeU32(&out, uint32(36+dataSize))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	writeU32(&out, 16)
	writeU16(&out, wavFormatPCM)
	writeU16(&out, uint16(channels))
	writeU32(&out, uint32(buf.SampleRate))
	writeU32(&out, uint32(buf.SampleRate*channels*2)) // byte rate
	writeU16(&out, uint16(channels*2))                // block align
	writeU16(&out, 16)

	out.WriteString("data")
	writeU32(&out, uint32(dataSize))
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			v := buf.Samples[c][f]
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			s := int16(math.Round(v * 32767))
			writeU16(&out, uint16(s))
		}
	}
	return out.Bytes(), nil
}

func writeU16(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func writeU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}
