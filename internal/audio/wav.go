// Package audio wraps raw PCM into self-contained RIFF/WAVE chunks and
// streams them as upstream audio arrives.
//
// Every chunk produced here carries its own 44-byte header sized to its own
// payload, so a client can decode and play each chunk as soon as it is
// delivered instead of waiting for the full response.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the size of the canonical PCM WAV header written by Mux.
const HeaderSize = 44

// formatTagPCM is the WAVE format tag for integer PCM.
const formatTagPCM = 1

// Format describes the layout of interleaved little-endian PCM samples.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// PCM24kMono is signed 16-bit little-endian mono at 24 kHz, the layout every
// speech provider in this gateway delivers.
var PCM24kMono = Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16}

// BlockAlign is the size in bytes of one sample frame across all channels.
func (f Format) BlockAlign() int {
	return f.Channels * (f.BitsPerSample / 8)
}

// ByteRate is the number of payload bytes per second of audio.
func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

// Aligned reports whether n bytes hold a whole number of sample frames.
func (f Format) Aligned(n int) bool {
	frame := f.BlockAlign()
	return frame > 0 && n%frame == 0
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitsPerSample)
}

// Mux wraps pcm in a RIFF/WAVE container. The caller is responsible for pcm
// being aligned to f.BlockAlign().
func Mux(f Format, pcm []byte) []byte {
	le := binary.LittleEndian
	out := make([]byte, HeaderSize+len(pcm))

	copy(out[0:4], "RIFF")
	le.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	le.PutUint32(out[16:20], 16)
	le.PutUint16(out[20:22], formatTagPCM)
	le.PutUint16(out[22:24], uint16(f.Channels))
	le.PutUint32(out[24:28], uint32(f.SampleRate))
	le.PutUint32(out[28:32], uint32(f.ByteRate()))
	le.PutUint16(out[32:34], uint16(f.BlockAlign()))
	le.PutUint16(out[34:36], uint16(f.BitsPerSample))

	copy(out[36:40], "data")
	le.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[HeaderSize:], pcm)

	return out
}

// Header is the decoded header of a chunk produced by Mux.
type Header struct {
	RIFFSize   uint32
	FormatTag  uint16
	Format     Format
	ByteRate   uint32
	BlockAlign uint16
	DataSize   uint32
}

// ErrNotWAV is returned by ParseHeader for input that does not start with a
// canonical PCM WAV header.
var ErrNotWAV = errors.New("audio: not a canonical PCM WAV chunk")

// ParseHeader decodes the 44-byte header at the start of chunk and checks
// that the declared sizes match the bytes actually present.
func ParseHeader(chunk []byte) (Header, error) {
	if len(chunk) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than a header", ErrNotWAV, len(chunk))
	}
	if string(chunk[0:4]) != "RIFF" || string(chunk[8:12]) != "WAVE" {
		return Header{}, fmt.Errorf("%w: missing RIFF/WAVE markers", ErrNotWAV)
	}
	if string(chunk[12:16]) != "fmt " || string(chunk[36:40]) != "data" {
		return Header{}, fmt.Errorf("%w: unexpected sub-chunk layout", ErrNotWAV)
	}

	le := binary.LittleEndian
	h := Header{
		RIFFSize:  le.Uint32(chunk[4:8]),
		FormatTag: le.Uint16(chunk[20:22]),
		Format: Format{
			Channels:      int(le.Uint16(chunk[22:24])),
			SampleRate:    int(le.Uint32(chunk[24:28])),
			BitsPerSample: int(le.Uint16(chunk[34:36])),
		},
		ByteRate:   le.Uint32(chunk[28:32]),
		BlockAlign: le.Uint16(chunk[32:34]),
		DataSize:   le.Uint32(chunk[40:44]),
	}

	if h.FormatTag != formatTagPCM {
		return h, fmt.Errorf("%w: format tag %d", ErrNotWAV, h.FormatTag)
	}
	if int(h.DataSize) != len(chunk)-HeaderSize {
		return h, fmt.Errorf("%w: data size %d but %d payload bytes", ErrNotWAV, h.DataSize, len(chunk)-HeaderSize)
	}
	if h.RIFFSize != 36+h.DataSize {
		return h, fmt.Errorf("%w: riff size %d does not match data size %d", ErrNotWAV, h.RIFFSize, h.DataSize)
	}
	return h, nil
}
