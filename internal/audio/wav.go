package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatPCM is the WAVE format tag for integer PCM.
const wavFormatPCM = 1

// defaultBitDepth is used when re-encoding a buffer with no usable bit depth hint.
const defaultBitDepth = 16

// ErrInvalidWAV is returned when a file is not a readable RIFF/WAVE file.
var ErrInvalidWAV = errors.New("audio: invalid WAV file")

// WAVCodec reads and writes integer PCM WAV files without external tools.
// Non-PCM WAV files (for example IEEE float) are decoded and re-encoded by the
// fallback codec when one is set, so they keep their sample format.
type WAVCodec struct {
	fallback Codec
}

// Verify interface implementation at compile time.
var _ Codec = (*WAVCodec)(nil)

// NewWAVCodec creates a WAVCodec. fallback may be nil.
func NewWAVCodec(fallback Codec) *WAVCodec {
	return &WAVCodec{fallback: fallback}
}

// Decode implements Decoder. Multi-channel audio is mixed down to mono.
func (c *WAVCodec) Decode(ctx context.Context, path string) (*Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	f, err := os.Open(path) // #nosec G304 - path comes from the scanned input directory
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer func() { _ = f.Close() }()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}

	if d.WavAudioFormat != wavFormatPCM {
		if c.fallback == nil {
			return nil, fmt.Errorf("%w: wav format tag %d", ErrUnsupportedFormat, d.WavAudioFormat)
		}
		return c.fallback.Decode(ctx, path)
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}
	if pcm.Format == nil || pcm.Format.NumChannels <= 0 || pcm.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing format in %s", ErrInvalidWAV, path)
	}

	bitDepth := pcm.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(d.BitDepth)
	}

	return &Buffer{
		Samples:    mixdown(pcm.Data, pcm.Format.NumChannels, bitDepth),
		SampleRate: pcm.Format.SampleRate,
		BitDepth:   bitDepth,
	}, nil
}

// Encode implements Encoder. The file at path is created or truncated.
func (c *WAVCodec) Encode(ctx context.Context, path string, buf *Buffer) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	if buf == nil || buf.SampleRate <= 0 {
		return ErrInvalidBuffer
	}

	if buf.Codec != "" {
		if c.fallback == nil {
			return fmt.Errorf("%w: wav codec %s", ErrUnsupportedFormat, buf.Codec)
		}
		return c.fallback.Encode(ctx, path, buf)
	}

	bitDepth := buf.BitDepth
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		bitDepth = defaultBitDepth
	}

	f, err := os.Create(path) // #nosec G304 - path is a temp sibling created by the caller
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	enc := wav.NewEncoder(f, buf.SampleRate, bitDepth, 1, wavFormatPCM)
	ib := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: buf.SampleRate},
		Data:           quantize(buf.Samples, bitDepth),
		SourceBitDepth: bitDepth,
	}

	if err := enc.Write(ib); err != nil {
		_ = f.Close()
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}

// fullScale returns the divisor mapping integer PCM at bitDepth onto [-1, 1).
func fullScale(bitDepth int) float64 {
	return math.Exp2(float64(bitDepth - 1))
}

// mixdown averages interleaved integer PCM frames into normalized mono samples.
// 8-bit WAV is unsigned and centered on 128.
func mixdown(data []int, channels, bitDepth int) []float32 {
	scale := fullScale(bitDepth)
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	frames := len(data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(data[i*channels+ch] - offset)
		}
		out[i] = float32(sum / float64(channels) / scale)
	}
	return out
}

// quantize converts normalized samples to integer PCM at bitDepth.
func quantize(samples []float32, bitDepth int) []int {
	scale := fullScale(bitDepth)
	maxVal := scale - 1
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	out := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * scale)
		if v > maxVal {
			v = maxVal
		} else if v < -scale {
			v = -scale
		}
		out[i] = int(v) + offset
	}
	return out
}
