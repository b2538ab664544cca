package speech

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Buffer is decoded audio, one float slice per channel, samples in [-1, 1]
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// Frames returns the number of samples per channel
func (b *Buffer) Frames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback length
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Decode de-interleaves signed 16-bit little-endian PCM and normalizes
// every sample by 32768. A trailing partial frame is dropped.
func Decode(pcm []byte, channels, sampleRate int) (*Buffer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("PCM16 payload has odd length %d", len(pcm))
	}

	samples := len(pcm) / 2
	frames := samples / channels

	buf := &Buffer{
		SampleRate: sampleRate,
		Channels:   make([][]float32, channels),
	}
	for ch := range buf.Channels {
		buf.Channels[ch] = make([]float32, frames)
	}

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			offset := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[offset:]))
			buf.Channels[ch][i] = float32(sample) / 32768.0
		}
	}

	return buf, nil
}
