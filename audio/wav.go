// Package audio implements the clip trimming pipeline: decode a WAV
// recording into raw samples, slice a time range out of it and re-encode
// the result as canonical 16-bit PCM.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrDecode is returned when the input bytes can't be parsed as a
// supported WAV file. Callers must not upload anything after seeing it.
var ErrDecode = errors.New("failed to decode audio")

const wavHeaderSize = 44

// Buffer holds decoded audio as one float64 slice per channel, all of
// equal length, at the source sample rate.
type Buffer struct {
	SampleRate int
	Channels   [][]float64
}

// Frames returns the number of samples per channel.
func (b *Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Decode parses a RIFF/WAVE container holding 16-bit integer or 32-bit
// float PCM into a Buffer.
func Decode(data []byte) (*Buffer, error) {
	if len(data) < wavHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE container", ErrDecode)
	}

	var (
		format     uint16
		channels   int
		sampleRate int
		bits       int
		sampleData []byte
	)

	// Walk the chunk list. Only "fmt " and "data" matter, anything
	// else (LIST, fact, ...) is skipped.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8

		if size < 0 || body+size > len(data) {
			// Some encoders write a data chunk size larger than the
			// actual payload. Clamp instead of rejecting.
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too short", ErrDecode)
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			sampleData = data[body : body+size]
		}

		// Chunks are word-aligned
		off = body + size + size%2
	}

	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrDecode)
	}
	if sampleData == nil {
		return nil, fmt.Errorf("%w: missing data chunk", ErrDecode)
	}

	switch {
	case format == 1 && bits == 16:
		return decodePCM16(sampleData, channels, sampleRate), nil
	case format == 3 && bits == 32:
		return decodeFloat32(sampleData, channels, sampleRate), nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %d (%d bits)", ErrDecode, format, bits)
	}
}

func decodePCM16(data []byte, channels, sampleRate int) *Buffer {
	frames := len(data) / (2 * channels)
	buf := newBuffer(channels, frames, sampleRate)

	for i := range frames {
		for ch := range channels {
			off := (i*channels + ch) * 2
			s := int16(binary.LittleEndian.Uint16(data[off : off+2]))
			if s < 0 {
				buf.Channels[ch][i] = float64(s) / 32768
			} else {
				buf.Channels[ch][i] = float64(s) / 32767
			}
		}
	}
	return buf
}

func decodeFloat32(data []byte, channels, sampleRate int) *Buffer {
	frames := len(data) / (4 * channels)
	buf := newBuffer(channels, frames, sampleRate)

	for i := range frames {
		for ch := range channels {
			off := (i*channels + ch) * 4
			bits := binary.LittleEndian.Uint32(data[off : off+4])
			buf.Channels[ch][i] = float64(math.Float32frombits(bits))
		}
	}
	return buf
}

func newBuffer(channels, frames, sampleRate int) *Buffer {
	buf := &Buffer{
		SampleRate: sampleRate,
		Channels:   make([][]float64, channels),
	}
	for ch := range buf.Channels {
		buf.Channels[ch] = make([]float64, frames)
	}
	return buf
}

// Trim returns a new buffer holding the samples in [start, end) seconds.
// Start is clamped to the clip, end is clamped so the output always has
// at least one frame, even for degenerate ranges like [2.0, 2.0].
func (b *Buffer) Trim(start, end float64) *Buffer {
	if b.Frames() == 0 {
		return newBuffer(len(b.Channels), 0, b.SampleRate)
	}

	total := b.Duration()

	start = math.Min(math.Max(start, 0), total)
	end = math.Min(end, total)

	startFrame := int(start * float64(b.SampleRate))
	endFrame := int(end * float64(b.SampleRate))

	if startFrame >= b.Frames() {
		startFrame = b.Frames() - 1
	}
	if startFrame < 0 {
		startFrame = 0
	}
	if endFrame <= startFrame {
		endFrame = startFrame + 1
	}
	if endFrame > b.Frames() {
		endFrame = b.Frames()
	}
	if endFrame <= startFrame {
		endFrame = startFrame + 1
	}

	out := newBuffer(len(b.Channels), endFrame-startFrame, b.SampleRate)
	for ch := range b.Channels {
		copy(out.Channels[ch], b.Channels[ch][startFrame:endFrame])
	}
	return out
}

// EncodeWAV serializes the buffer as a canonical 16-bit PCM WAV file.
func (b *Buffer) EncodeWAV() []byte {
	channels := len(b.Channels)
	frames := b.Frames()
	blockAlign := channels * 2
	dataSize := frames * blockAlign

	out := make([]byte, wavHeaderSize+dataSize)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(wavHeaderSize+dataSize-8))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(b.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(b.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], 16)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))

	for i := range frames {
		for ch := range channels {
			s := math.Max(-1, math.Min(1, b.Channels[ch][i]))

			var v int16
			if s < 0 {
				v = int16(math.Round(s * 32768))
			} else {
				v = int16(math.Round(s * 32767))
			}

			off := wavHeaderSize + (i*channels+ch)*2
			binary.LittleEndian.PutUint16(out[off:off+2], uint16(v))
		}
	}

	return out
}

// TrimWAV decodes a WAV recording, trims it to [start, end) seconds and
// re-encodes it as 16-bit PCM. This is the whole pipeline in one call.
func TrimWAV(data []byte, start, end float64) ([]byte, error) {
	buf, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return buf.Trim(start, end).EncodeWAV(), nil
}
