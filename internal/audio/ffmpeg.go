package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Static errors for ffmpeg operations.
var (
	// ErrFFprobeExecution is returned when ffprobe fails.
	ErrFFprobeExecution = errors.New("audio: ffprobe execution failed")
	// ErrNoAudioStream is returned when a file has no audio stream.
	ErrNoAudioStream = errors.New("audio: no audio stream found")
)

// FFmpegCodec implements Codec using the ffmpeg and ffprobe CLIs. Samples
// cross the process boundary as raw little-endian float32 mono.
type FFmpegCodec struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// Verify interface implementation at compile time.
var _ Codec = (*FFmpegCodec)(nil)

// NewFFmpegCodec creates a new FFmpegCodec.
// Empty paths default to "ffmpeg" and "ffprobe" found via PATH.
func NewFFmpegCodec(ffmpegPath, ffprobePath string) *FFmpegCodec {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegCodec{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Tools returns the ffmpeg and ffprobe binaries this codec invokes.
func (c *FFmpegCodec) Tools() []string {
	return []string{c.ffmpegPath, c.ffprobePath}
}

// ToolStatus reports whether an external binary is usable.
type ToolStatus struct {
	Name    string
	Path    string
	Found   bool
	Version string
	Err     error
}

// Check resolves the ffmpeg and ffprobe binaries and reads their versions.
func (c *FFmpegCodec) Check(ctx context.Context) []ToolStatus {
	tools := c.Tools()
	out := make([]ToolStatus, 0, len(tools))
	for _, tool := range tools {
		out = append(out, checkTool(ctx, tool))
	}
	return out
}

func checkTool(ctx context.Context, tool string) ToolStatus {
	st := ToolStatus{Name: filepath.Base(tool)}

	path, err := exec.LookPath(tool)
	if err != nil {
		st.Err = err
		return st
	}
	st.Path = path

	// #nosec G204 - path is resolved from application configuration
	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		st.Err = fmt.Errorf("%s -version: %w", st.Name, err)
		return st
	}
	st.Found = true
	st.Version = parseVersionLine(string(out))
	return st
}

// parseVersionLine extracts "7.0.1" from "ffmpeg version 7.0.1 Copyright ...".
func parseVersionLine(out string) string {
	line, _, _ := strings.Cut(out, "\n")
	fields := strings.Fields(line)
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return strings.TrimSpace(line)
}

// StreamInfo describes the first audio stream of a file.
type StreamInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Codec      string
}

// Decode implements Decoder.
func (c *FFmpegCodec) Decode(ctx context.Context, path string) (*Buffer, error) {
	info, err := c.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	args := []string{
		"-v", "error",
		"-i", path,
		"-vn",      // Ignore cover art and video
		"-ac", "1", // Mix down to mono
		"-ar", strconv.Itoa(info.SampleRate), // Keep the native rate
		"-f", "f32le",
		"pipe:1",
	}

	var stdout bytes.Buffer
	if err := c.runFFmpeg(ctx, args, nil, &stdout); err != nil {
		return nil, err
	}

	return &Buffer{
		Samples:    bytesToFloat32(stdout.Bytes()),
		SampleRate: info.SampleRate,
		BitDepth:   info.BitDepth,
		Codec:      info.Codec,
	}, nil
}

// Encode implements Encoder. ffmpeg picks the muxer from the extension of
// path; the file is overwritten. Output is always mono.
func (c *FFmpegCodec) Encode(ctx context.Context, path string, buf *Buffer) error {
	if buf == nil || buf.SampleRate <= 0 {
		return ErrInvalidBuffer
	}
	return c.runFFmpeg(ctx, encodeArgs(path, buf), bytes.NewReader(float32ToBytes(buf.Samples)), nil)
}

// encodeArgs builds the ffmpeg arguments for Encode. PCM sources keep their
// sample format; compressed ones use the container's default encoder.
func encodeArgs(path string, buf *Buffer) []string {
	args := []string{
		"-y",
		"-v", "error",
		"-f", "f32le",
		"-ar", strconv.Itoa(buf.SampleRate),
		"-ac", "1",
		"-i", "pipe:0",
	}
	if strings.HasPrefix(buf.Codec, "pcm_") {
		args = append(args, "-c:a", buf.Codec)
	}
	return append(args, path)
}

// ffprobeOutput is the subset of `ffprobe -of json` output we read.
type ffprobeOutput struct {
	Streams []struct {
		CodecName        string `json:"codec_name"`
		SampleRate       string `json:"sample_rate"`
		Channels         int    `json:"channels"`
		BitsPerRawSample string `json:"bits_per_raw_sample"`
		BitsPerSample    int    `json:"bits_per_sample"`
	} `json:"streams"`
}

// Probe returns information about the first audio stream of path.
func (c *FFmpegCodec) Probe(ctx context.Context, path string) (StreamInfo, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name,sample_rate,channels,bits_per_raw_sample,bits_per_sample",
		"-of", "json",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return StreamInfo{}, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return StreamInfo{}, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, strings.TrimSpace(stderr.String()))
	}

	return parseProbeOutput(stdout.Bytes())
}

func parseProbeOutput(data []byte) (StreamInfo, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return StreamInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return StreamInfo{}, ErrNoAudioStream
	}

	s := out.Streams[0]
	rate, err := strconv.Atoi(s.SampleRate)
	if err != nil || rate <= 0 {
		return StreamInfo{}, fmt.Errorf("%w: bad sample rate %q", ErrNoAudioStream, s.SampleRate)
	}

	bits := s.BitsPerSample
	if raw, err := strconv.Atoi(s.BitsPerRawSample); err == nil && raw > 0 {
		bits = raw
	}

	return StreamInfo{
		SampleRate: rate,
		Channels:   s.Channels,
		BitDepth:   bits,
		Codec:      s.CodecName,
	}, nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (c *FFmpegCodec) runFFmpeg(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// bytesToFloat32 decodes little-endian float32 PCM. A trailing partial sample
// is dropped.
func bytesToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// float32ToBytes encodes samples as little-endian float32 PCM.
func float32ToBytes(samples []float32) []byte {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return buf
}
