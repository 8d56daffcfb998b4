// Package audio provides decoding, encoding and file discovery for the
// trimmer. WAV files are handled natively; other containers go through ffmpeg.
package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Static errors for audio operations.
var (
	// ErrUnsupportedFormat is returned when no codec handles a file extension.
	ErrUnsupportedFormat = errors.New("audio: unsupported format")
	// ErrInvalidBuffer is returned when a buffer cannot be encoded.
	ErrInvalidBuffer = errors.New("audio: invalid buffer")
	// ErrInputDir is returned when the input directory is missing or unreadable.
	ErrInputDir = errors.New("audio: input directory unavailable")
)

// Buffer is a decoded mono signal.
type Buffer struct {
	// Samples holds amplitudes in [-1, 1].
	Samples []float32
	// SampleRate is the native sample rate in Hz.
	SampleRate int
	// BitDepth is the source bit depth, used as a hint when re-encoding PCM.
	// Zero means unknown.
	BitDepth int
	// Codec names the source codec as reported by ffprobe (for example
	// "pcm_f32le"). It is empty for integer PCM decoded natively, and a
	// non-empty value makes WAV re-encoding go through ffmpeg.
	Codec string
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Slice returns a buffer sharing the samples in [start, end).
func (b *Buffer) Slice(start, end int) *Buffer {
	return &Buffer{
		Samples:    b.Samples[start:end],
		SampleRate: b.SampleRate,
		BitDepth:   b.BitDepth,
		Codec:      b.Codec,
	}
}

// Decoder reads an audio file into a mono buffer at its native sample rate.
type Decoder interface {
	Decode(ctx context.Context, path string) (*Buffer, error)
}

// Encoder writes a buffer to path. The container is inferred from the path's
// extension and the buffer's sample rate is preserved.
type Encoder interface {
	Encode(ctx context.Context, path string, buf *Buffer) error
}

// Codec decodes and encodes one family of containers.
type Codec interface {
	Decoder
	Encoder
}

// SupportedExtensions lists the file extensions picked up from input directories.
var SupportedExtensions = []string{".wav", ".mp3", ".m4a", ".flac", ".ogg", ".aac", ".wma"}

// IsSupported reports whether path has a supported audio extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Router dispatches to a codec by file extension, falling back to a default.
type Router struct {
	byExt    map[string]Codec
	fallback Codec
}

// Verify interface implementation at compile time.
var _ Codec = (*Router)(nil)

// NewRouter creates a Router that uses fallback for unregistered extensions.
// A nil fallback makes unregistered extensions fail with ErrUnsupportedFormat.
func NewRouter(fallback Codec) *Router {
	return &Router{byExt: make(map[string]Codec), fallback: fallback}
}

// Register routes files with extension ext (for example ".wav") to c.
func (r *Router) Register(ext string, c Codec) *Router {
	r.byExt[strings.ToLower(ext)] = c
	return r
}

// Decode implements Decoder.
func (r *Router) Decode(ctx context.Context, path string) (*Buffer, error) {
	c, err := r.codecFor(path)
	if err != nil {
		return nil, err
	}
	return c.Decode(ctx, path)
}

// Encode implements Encoder.
func (r *Router) Encode(ctx context.Context, path string, buf *Buffer) error {
	c, err := r.codecFor(path)
	if err != nil {
		return err
	}
	return c.Encode(ctx, path, buf)
}

func (r *Router) codecFor(path string) (Codec, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if c, ok := r.byExt[ext]; ok {
		return c, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}
