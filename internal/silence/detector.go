// Package silence finds the non-silent region of a mono sample buffer using
// windowed RMS energy thresholding.
package silence

import (
	"errors"
	"fmt"
	"math"

	"github.com/maauso/trimsilence/internal/backend"
)

// DefaultWindowSeconds is the analysis window length used when none is given.
const DefaultWindowSeconds = 0.1

// DefaultThresholdDB is the default silence threshold in dBFS.
const DefaultThresholdDB = -40.0

// ErrDetectionInput is returned when the buffer or its parameters cannot be analyzed.
var ErrDetectionInput = errors.New("silence: invalid detection input")

// Range is a half-open sample range [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of samples in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// WindowSpec is the analysis window derived from a duration and a sample rate.
type WindowSpec struct {
	Size int
	Hop  int
}

// NewWindowSpec derives a WindowSpec. Size is floor(seconds*sampleRate) and Hop
// is a quarter of it, never below one sample. A zero Size means the window is
// too small to analyze.
func NewWindowSpec(seconds float64, sampleRate int) WindowSpec {
	size := int(math.Floor(seconds * float64(sampleRate)))
	if size <= 0 {
		return WindowSpec{}
	}
	hop := size / 4
	if hop < 1 {
		hop = 1
	}
	return WindowSpec{Size: size, Hop: hop}
}

// Analysis is the full outcome of a detection pass.
type Analysis struct {
	Range  Range
	Window WindowSpec
	// Voiced reports whether any window exceeded the threshold. When false,
	// Range covers the whole buffer and nothing should be trimmed.
	Voiced bool
	// Analyzed is false when the buffer was shorter than one window.
	Analyzed bool
}

// DBToAmplitude converts a dBFS value to a linear amplitude.
func DBToAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}

// Detector runs silence detection on a given compute backend.
type Detector struct {
	backend backend.Backend
}

// NewDetector creates a Detector. A nil backend falls back to the plain one.
func NewDetector(b backend.Backend) *Detector {
	if b == nil {
		b = backend.NewPlain("")
	}
	return &Detector{backend: b}
}

// Detect returns the non-silent sample range of samples.
func (d *Detector) Detect(samples []float32, sampleRate int, thresholdDB, windowSeconds float64) (Range, error) {
	a, err := d.Analyze(samples, sampleRate, thresholdDB, windowSeconds)
	if err != nil {
		return Range{}, err
	}
	return a.Range, nil
}

// Analyze runs detection and reports how the range was obtained.
func (d *Detector) Analyze(samples []float32, sampleRate int, thresholdDB, windowSeconds float64) (Analysis, error) {
	if err := validate(samples, sampleRate, thresholdDB, windowSeconds); err != nil {
		return Analysis{}, err
	}

	n := len(samples)
	whole := Range{Start: 0, End: n}
	spec := NewWindowSpec(windowSeconds, sampleRate)
	if spec.Size == 0 || n < spec.Size {
		return Analysis{Range: whole, Window: spec}, nil
	}

	threshold := DBToAmplitude(thresholdDB)
	rms := d.backend.WindowRMS(samples, spec.Size, spec.Hop)

	first, last := -1, -1
	for i, v := range rms {
		if v > threshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}

	if first < 0 {
		return Analysis{Range: whole, Window: spec, Analyzed: true}, nil
	}

	end := (last+1)*spec.Hop + spec.Size
	if end > n {
		end = n
	}
	return Analysis{
		Range:    Range{Start: first * spec.Hop, End: end},
		Window:   spec,
		Voiced:   true,
		Analyzed: true,
	}, nil
}

func validate(samples []float32, sampleRate int, thresholdDB, windowSeconds float64) error {
	if len(samples) == 0 {
		return fmt.Errorf("%w: empty buffer", ErrDetectionInput)
	}
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrDetectionInput, sampleRate)
	}
	if math.IsNaN(thresholdDB) || math.IsInf(thresholdDB, 0) {
		return fmt.Errorf("%w: threshold %v dB", ErrDetectionInput, thresholdDB)
	}
	if math.IsNaN(windowSeconds) || math.IsInf(windowSeconds, 0) || windowSeconds < 0 {
		return fmt.Errorf("%w: window %v s", ErrDetectionInput, windowSeconds)
	}
	for i, v := range samples {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite sample at %d", ErrDetectionInput, i)
		}
	}
	return nil
}
