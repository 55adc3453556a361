package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestMux_ZeroFragmentScenario(t *testing.T) {
	pcm := make([]byte, 4800)
	chunk := Mux(PCM24kMono, pcm)

	if len(chunk) != 4844 {
		t.Fatalf("Expected chunk of 4844 bytes, got %d", len(chunk))
	}
	if got := binary.LittleEndian.Uint32(chunk[4:8]); got != 4836 {
		t.Errorf("Expected RIFF size 4836, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(chunk[40:44]); got != 4800 {
		t.Errorf("Expected data size 4800, got %d", got)
	}
	if !bytes.Equal(chunk[HeaderSize:], pcm) {
		t.Error("Payload was not copied verbatim")
	}
}

func TestMux_HeaderLayout(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	chunk := Mux(PCM24kMono, pcm)

	want := []byte{
		'R', 'I', 'F', 'F', 40, 0, 0, 0, 'W', 'A', 'V', 'E',
		'f', 'm', 't', ' ', 16, 0, 0, 0,
		1, 0, // PCM
		1, 0, // mono
		0xC0, 0x5D, 0, 0, // 24000
		0x80, 0xBB, 0, 0, // 48000
		2, 0, // block align
		16, 0, // bits per sample
		'd', 'a', 't', 'a', 4, 0, 0, 0,
		0x01, 0x02, 0x03, 0x04,
	}
	if !bytes.Equal(chunk, want) {
		t.Errorf("Unexpected chunk bytes\n got: % x\nwant: % x", chunk, want)
	}
}

func TestMux_FormatArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		format Format
	}{
		{name: "24k mono 16-bit", format: PCM24kMono},
		{name: "16k mono 16-bit", format: Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}},
		{name: "44.1k stereo 16-bit", format: Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16}},
		{name: "48k stereo 24-bit", format: Format{SampleRate: 48000, Channels: 2, BitsPerSample: 24}},
		{name: "8k mono 8-bit", format: Format{SampleRate: 8000, Channels: 1, BitsPerSample: 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm := make([]byte, tt.format.BlockAlign()*10)
			h, err := ParseHeader(Mux(tt.format, pcm))
			if err != nil {
				t.Fatalf("ParseHeader() error = %v", err)
			}

			wantByteRate := tt.format.SampleRate * tt.format.Channels * tt.format.BitsPerSample / 8
			wantAlign := tt.format.Channels * tt.format.BitsPerSample / 8
			if int(h.ByteRate) != wantByteRate {
				t.Errorf("Expected byte rate %d, got %d", wantByteRate, h.ByteRate)
			}
			if int(h.BlockAlign) != wantAlign {
				t.Errorf("Expected block align %d, got %d", wantAlign, h.BlockAlign)
			}
			if h.Format != tt.format {
				t.Errorf("Expected format %v, got %v", tt.format, h.Format)
			}
			if h.RIFFSize != 36+uint32(len(pcm)) {
				t.Errorf("Expected RIFF size %d, got %d", 36+len(pcm), h.RIFFSize)
			}
		})
	}
}

func TestMux_EmptyPayload(t *testing.T) {
	chunk := Mux(PCM24kMono, nil)
	if len(chunk) != HeaderSize {
		t.Fatalf("Expected header only, got %d bytes", len(chunk))
	}
	h, err := ParseHeader(chunk)
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}
	if h.DataSize != 0 || h.RIFFSize != 36 {
		t.Errorf("Unexpected sizes: riff=%d data=%d", h.RIFFSize, h.DataSize)
	}
}

func TestParseHeader_Rejects(t *testing.T) {
	valid := Mux(PCM24kMono, make([]byte, 8))

	truncated := valid[:len(valid)-2]

	badMarker := append([]byte(nil), valid...)
	copy(badMarker[0:4], "RIFX")

	badTag := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint16(badTag[20:22], 3)

	tests := []struct {
		name  string
		chunk []byte
	}{
		{name: "too short", chunk: valid[:20]},
		{name: "payload shorter than declared", chunk: truncated},
		{name: "wrong marker", chunk: badMarker},
		{name: "float format tag", chunk: badTag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeader(tt.chunk)
			if !errors.Is(err, ErrNotWAV) {
				t.Errorf("ParseHeader() error = %v, want ErrNotWAV", err)
			}
		})
	}
}

func TestFormat_Aligned(t *testing.T) {
	if !PCM24kMono.Aligned(4800) {
		t.Error("Expected 4800 bytes to be aligned for 16-bit mono")
	}
	if PCM24kMono.Aligned(4801) {
		t.Error("Expected 4801 bytes to be misaligned for 16-bit mono")
	}
	if (Format{}).Aligned(4) {
		t.Error("Expected zero format to never be aligned")
	}
}
