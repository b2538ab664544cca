package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"
)

// Player renders a decoded buffer as soon as it is handed over
type Player interface {
	Play(ctx context.Context, buf *Buffer) error
}

// LogPlayer only reports what would have been played
type LogPlayer struct{}

// Play logs the buffer shape
func (LogPlayer) Play(ctx context.Context, buf *Buffer) error {
	slog.Info("Narration ready", "channels", len(buf.Channels), "sample_rate", buf.SampleRate, "duration", buf.Duration())
	return nil
}

// WAVPlayer writes each narration to a timestamped WAV file in Dir
type WAVPlayer struct {
	Dir string
}

// Play writes the buffer as 16-bit PCM WAV
func (p WAVPlayer) Play(ctx context.Context, buf *Buffer) error {
	if err := os.MkdirAll(p.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create narration directory: %w", err)
	}

	path := filepath.Join(p.Dir, fmt.Sprintf("narration-%s.wav", time.Now().Format("2006-01-02_15-04-05.000")))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create narration file: %w", err)
	}
	defer f.Close()

	if err := WriteWAV(f, buf); err != nil {
		return err
	}

	slog.Info("Narration written", "path", path, "duration", buf.Duration())
	return nil
}

// WriteWAV encodes buf as a canonical 16-bit PCM RIFF/WAVE stream
func WriteWAV(w io.Writer, buf *Buffer) error {
	channels := len(buf.Channels)
	if channels == 0 {
		return fmt.Errorf("buffer has no channels")
	}
	frames := buf.Frames()
	dataSize := frames * channels * 2

	var out bytes.Buffer
	out.Grow(44 + dataSize)

	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(36+dataSize))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	_ = binary.Write(&out, binary.LittleEndian, uint32(16))
	_ = binary.Write(&out, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&out, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&out, binary.LittleEndian, uint32(buf.SampleRate))
	_ = binary.Write(&out, binary.LittleEndian, uint32(buf.SampleRate*channels*2))
	_ = binary.Write(&out, binary.LittleEndian, uint16(channels*2))
	_ = binary.Write(&out, binary.LittleEndian, uint16(16))

	out.WriteString("data")
	_ = binary.Write(&out, binary.LittleEndian, uint32(dataSize))
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			_ = binary.Write(&out, binary.LittleEndian, toPCM16(buf.Channels[ch][i]))
		}
	}

	if _, err := w.Write(out.Bytes()); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	return nil
}

func toPCM16(v float32) int16 {
	scaled := math.Round(float64(v) * 32768)
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int16(scaled)
}
