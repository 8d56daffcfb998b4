package trim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/trimsilence/internal/audio"
	"github.com/maauso/trimsilence/internal/backend"
	"github.com/maauso/trimsilence/internal/silence"
)

// mockCodec implements audio.Codec for testing.
type mockCodec struct {
	mock.Mock
}

func (m *mockCodec) Decode(ctx context.Context, path string) (*audio.Buffer, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audio.Buffer), args.Error(1)
}

func (m *mockCodec) Encode(ctx context.Context, path string, buf *audio.Buffer) error {
	args := m.Called(ctx, path, buf)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// segment is a stretch of constant-amplitude tone (0 for silence).
type segment struct {
	seconds   float64
	amplitude float64
}

func render(rate int, segments ...segment) []float32 {
	var out []float32
	for _, s := range segments {
		n := int(s.seconds * float64(rate))
		for i := 0; i < n; i++ {
			out = append(out, float32(s.amplitude*math.Sin(2*math.Pi*440*float64(i)/float64(rate))))
		}
	}
	return out
}

func newWAVProcessor(opts Options) *Processor {
	detector := silence.NewDetector(backend.NewPlain(""))
	return NewProcessor(audio.NewWAVCodec(nil), detector, opts, discardLogger())
}

func writeWAV(t *testing.T, path string, samples []float32, rate int) {
	t.Helper()
	buf := &audio.Buffer{Samples: samples, SampleRate: rate, BitDepth: 16}
	require.NoError(t, audio.NewWAVCodec(nil).Encode(context.Background(), path, buf))
}

func TestProcessor_TrimsLeadingSilence(t *testing.T) {
	const rate = 44100
	path := filepath.Join(t.TempDir(), "speech.wav")
	writeWAV(t, path, render(rate, segment{5, 0}, segment{3, 0.3}), rate)

	p := newWAVProcessor(DefaultOptions())
	res := p.Process(context.Background(), path)

	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeTrimmed, res.Outcome)
	assert.InDelta(t, 8.0, res.OriginalSeconds, 1e-3)
	assert.InDelta(t, 3.0, res.TrimmedSeconds, 0.1)
	assert.InDelta(t, 62.5, res.RemovedPercent(), 1.5)

	rewritten, err := audio.NewWAVCodec(nil).Decode(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, rate, rewritten.SampleRate)
	assert.Equal(t, 16, rewritten.BitDepth)
	assert.InDelta(t, res.TrimmedSeconds, rewritten.Duration(), 1e-3)

	// The kept region starts inside the first voiced window, so a second
	// pass has nothing left to remove.
	again := p.Process(context.Background(), path)
	require.NoError(t, again.Err)
	assert.Equal(t, OutcomeUnchanged, again.Outcome)
}

func TestProcessor_TrimsBothEnds(t *testing.T) {
	const rate = 16000
	path := filepath.Join(t.TempDir(), "speech.wav")
	writeWAV(t, path, render(rate, segment{2, 0}, segment{3, 0.5}, segment{3, 0}), rate)

	res := newWAVProcessor(DefaultOptions()).Process(context.Background(), path)

	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeTrimmed, res.Outcome)
	spec := silence.NewWindowSpec(silence.DefaultWindowSeconds, rate)
	assert.LessOrEqual(t, res.Range.Start, 2*rate+spec.Hop)
	assert.GreaterOrEqual(t, res.Range.End, 5*rate-spec.Hop)
	// At most one window of slack on each side.
	assert.InDelta(t, 3.0, res.TrimmedSeconds, 2*silence.DefaultWindowSeconds+0.05)
}

func TestProcessor_SilentFileKept(t *testing.T) {
	const rate = 16000
	path := filepath.Join(t.TempDir(), "silent.wav")
	writeWAV(t, path, make([]float32, 2*rate), rate)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	res := newWAVProcessor(DefaultOptions()).Process(context.Background(), path)

	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeKeptSilent, res.Outcome)
	assert.Equal(t, silence.Range{Start: 0, End: 2 * rate}, res.Range)
	assert.Equal(t, res.OriginalSeconds, res.TrimmedSeconds)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestProcessor_ShortVoicedRegionKept(t *testing.T) {
	const rate = 16000
	path := filepath.Join(t.TempDir(), "blip.wav")
	writeWAV(t, path, render(rate, segment{1, 0}, segment{0.05, 0.8}, segment{1, 0}), rate)

	opts := DefaultOptions()
	opts.MinKeptSeconds = 0.5
	res := newWAVProcessor(opts).Process(context.Background(), path)

	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeKeptTooShort, res.Outcome)
	assert.Equal(t, res.OriginalSeconds, res.TrimmedSeconds)
}

func TestProcessor_NoSilenceUnchanged(t *testing.T) {
	const rate = 16000
	path := filepath.Join(t.TempDir(), "loud.wav")
	writeWAV(t, path, render(rate, segment{1, 0.5}), rate)

	res := newWAVProcessor(DefaultOptions()).Process(context.Background(), path)

	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeUnchanged, res.Outcome)
	assert.Equal(t, silence.Range{Start: 0, End: rate}, res.Range)
}

func TestProcessor_ShorterThanWindowUnchanged(t *testing.T) {
	const rate = 16000
	path := filepath.Join(t.TempDir(), "tiny.wav")
	writeWAV(t, path, make([]float32, 100), rate)

	res := newWAVProcessor(DefaultOptions()).Process(context.Background(), path)

	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeUnchanged, res.Outcome)
}

func TestProcessor_DryRunLeavesFile(t *testing.T) {
	const rate = 16000
	path := filepath.Join(t.TempDir(), "speech.wav")
	writeWAV(t, path, render(rate, segment{1, 0}, segment{1, 0.5}, segment{1, 0}), rate)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.DryRun = true
	res := newWAVProcessor(opts).Process(context.Background(), path)

	require.NoError(t, res.Err)
	assert.True(t, res.DryRun)
	assert.Equal(t, OutcomeTrimmed, res.Outcome)
	assert.Less(t, res.TrimmedSeconds, res.OriginalSeconds)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestProcessor_DecodeError(t *testing.T) {
	codec := new(mockCodec)
	codec.On("Decode", mock.Anything, "broken.mp3").Return(nil, errors.New("invalid data found"))

	p := NewProcessor(codec, nil, DefaultOptions(), discardLogger())
	res := p.Process(context.Background(), "broken.mp3")

	assert.ErrorIs(t, res.Err, ErrDecode)
	assert.Contains(t, res.Err.Error(), "invalid data found")
	assert.Empty(t, res.Outcome)
	codec.AssertNotCalled(t, "Encode", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessor_UnreadableWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a wav"), 0o644))

	res := newWAVProcessor(DefaultOptions()).Process(context.Background(), path)

	assert.ErrorIs(t, res.Err, ErrDecode)
	assert.ErrorIs(t, res.Err, audio.ErrInvalidWAV)
}

func TestProcessor_DetectionInputError(t *testing.T) {
	codec := new(mockCodec)
	codec.On("Decode", mock.Anything, "empty.wav").Return(&audio.Buffer{SampleRate: 8000}, nil)

	res := NewProcessor(codec, nil, DefaultOptions(), discardLogger()).Process(context.Background(), "empty.wav")

	assert.ErrorIs(t, res.Err, ErrDetectionInput)
}

func TestProcessor_WriteErrorKeepsOriginal(t *testing.T) {
	const rate = 8000
	dir := t.TempDir()
	path := filepath.Join(dir, "speech.wav")
	require.NoError(t, os.WriteFile(path, []byte("original bytes"), 0o644))

	samples := render(rate, segment{1, 0}, segment{1, 0.5}, segment{1, 0})
	codec := new(mockCodec)
	codec.On("Decode", mock.Anything, path).Return(&audio.Buffer{Samples: samples, SampleRate: rate}, nil)
	codec.On("Encode", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(errors.New("disk full"))

	res := NewProcessor(codec, nil, DefaultOptions(), discardLogger()).Process(context.Background(), path)

	assert.ErrorIs(t, res.Err, ErrWrite)
	assert.Empty(t, res.Outcome)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original bytes", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestProcessor_EncodesToTempSibling(t *testing.T) {
	const rate = 8000
	dir := t.TempDir()
	path := filepath.Join(dir, "speech.flac")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))

	samples := render(rate, segment{1, 0}, segment{1, 0.5}, segment{1, 0})
	codec := new(mockCodec)
	codec.On("Decode", mock.Anything, path).Return(&audio.Buffer{Samples: samples, SampleRate: rate}, nil)

	var encodedTo string
	var encoded *audio.Buffer
	codec.On("Encode", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			encodedTo = args.String(1)
			encoded = args.Get(2).(*audio.Buffer)
			_ = os.WriteFile(encodedTo, []byte("trimmed"), 0o644)
		})

	res := NewProcessor(codec, nil, DefaultOptions(), discardLogger()).Process(context.Background(), path)

	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeTrimmed, res.Outcome)
	assert.Equal(t, dir, filepath.Dir(encodedTo))
	assert.Equal(t, ".flac", filepath.Ext(encodedTo))
	assert.NotEqual(t, path, encodedTo)
	assert.Equal(t, rate, encoded.SampleRate)
	assert.Len(t, encoded.Samples, res.Range.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "trimmed", string(data))
}

func TestProcessor_CancelledContext(t *testing.T) {
	codec := new(mockCodec)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewProcessor(codec, nil, DefaultOptions(), discardLogger()).Process(ctx, "a.wav")

	assert.ErrorIs(t, res.Err, context.Canceled)
	codec.AssertNotCalled(t, "Decode", mock.Anything, mock.Anything)
}

func TestResult_RemovedPercent(t *testing.T) {
	assert.InDelta(t, 50.0, Result{OriginalSeconds: 4, TrimmedSeconds: 2}.RemovedPercent(), 1e-9)
	assert.Zero(t, Result{}.RemovedPercent())
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, -40.0, opts.ThresholdDB)
	assert.Equal(t, 0.1, opts.WindowSeconds)
	assert.Equal(t, 0.1, opts.MinKeptSeconds)
	assert.False(t, opts.DryRun)
}
