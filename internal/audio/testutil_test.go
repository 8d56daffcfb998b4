package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func formatSeconds(sec float64) string {
	// Format with 3 decimal places for ffmpeg
	return fmt.Sprintf("%.3f", sec)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// writePCMWAV writes an interleaved integer PCM WAV file with the given layout.
func writePCMWAV(t *testing.T, path string, data []int, sampleRate, bitDepth, channels int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create WAV file: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write WAV data: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to finalize WAV file: %v", err)
	}
}

// toneInt16 renders n samples of a 440 Hz tone at the given linear amplitude.
func toneInt16(n, sampleRate int, amplitude float64) []int {
	out := make([]int, n)
	for i := range out {
		v := amplitude * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate))
		out[i] = int(math.Round(v * math.MaxInt16))
	}
	return out
}

// writeFloatWAV writes a small mono IEEE float WAV file, which WAVCodec
// does not decode natively.
func writeFloatWAV(t *testing.T) string {
	t.Helper()

	samples := []float32{0, 0.5, -0.5, 0.25}
	var data bytes.Buffer
	for _, s := range samples {
		_ = binary.Write(&data, binary.LittleEndian, s)
	}

	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(4+8+16+8+data.Len()))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(3)) // IEEE float
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint32(8000))
	_ = binary.Write(&b, binary.LittleEndian, uint32(8000*4))
	_ = binary.Write(&b, binary.LittleEndian, uint16(4))
	_ = binary.Write(&b, binary.LittleEndian, uint16(32))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(data.Len()))
	b.Write(data.Bytes())

	path := filepath.Join(t.TempDir(), "float.wav")
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write float WAV: %v", err)
	}
	return path
}
