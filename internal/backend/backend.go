// Package backend provides the compute backends used for windowed RMS energy
// and the selector that picks one based on the host's capabilities.
package backend

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// Kind identifies a compute backend.
type Kind string

const (
	// KindAccelerated uses the SIMD-friendly prefix-sum kernel.
	KindAccelerated Kind = "accelerated"
	// KindPlain uses a straightforward per-window loop.
	KindPlain Kind = "plain"
)

// Preference is the requested backend, usually from configuration.
type Preference string

const (
	// PreferAuto picks accelerated when the CPU supports it.
	PreferAuto Preference = "auto"
	// PreferAccelerated forces the accelerated backend.
	PreferAccelerated Preference = "accelerated"
	// PreferPlain forces the plain backend.
	PreferPlain Preference = "plain"
)

// Worker caps suggested per backend kind.
const (
	AcceleratedWorkerCap = 4
	PlainWorkerCap       = 8
)

// ErrUnknownPreference is returned when a preference string is not recognized.
var ErrUnknownPreference = errors.New("backend: unknown preference")

// Backend computes windowed RMS energy over a mono sample buffer.
//
// WindowRMS zero-pads samples on the right by size and returns one value per
// window starting at i*hop, for i in [0, len(samples)/hop]. Implementations
// must be safe for concurrent use.
type Backend interface {
	Kind() Kind
	Device() string
	WindowRMS(samples []float32, size, hop int) []float64
}

// Selection is the result of inspecting the host once at startup.
type Selection struct {
	Kind    Kind
	Device  string
	Backend Backend
}

// SuggestedWorkers returns the worker count for a batch of fileCount files.
// Accelerated backends share one context, so they get a smaller pool.
func (s Selection) SuggestedWorkers(fileCount int) int {
	limit := PlainWorkerCap
	if s.Kind == KindAccelerated {
		limit = AcceleratedWorkerCap
	}
	if fileCount < limit {
		limit = fileCount
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// capabilities describes what the host CPU offers.
type capabilities struct {
	simd   string
	arch   string
	numCPU int
}

func hostCapabilities() capabilities {
	c := capabilities{arch: runtime.GOARCH, numCPU: runtime.NumCPU()}
	switch {
	case cpu.X86.HasAVX2:
		c.simd = "avx2"
	case cpu.ARM64.HasASIMD:
		c.simd = "asimd"
	}
	return c
}

// ParsePreference converts a configuration string into a Preference.
func ParsePreference(s string) (Preference, error) {
	switch Preference(strings.ToLower(strings.TrimSpace(s))) {
	case "", PreferAuto:
		return PreferAuto, nil
	case PreferAccelerated:
		return PreferAccelerated, nil
	case PreferPlain:
		return PreferPlain, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPreference, s)
	}
}

// Select inspects the host and returns the backend to use for this process.
// It is meant to be called once and the result passed to the components
// that need it.
func Select(pref Preference) Selection {
	return selectFor(pref, hostCapabilities())
}

func selectFor(pref Preference, c capabilities) Selection {
	accelerated := c.simd != ""
	switch pref {
	case PreferAccelerated:
		accelerated = true
	case PreferPlain:
		accelerated = false
	}

	if accelerated {
		simd := c.simd
		if simd == "" {
			simd = "generic"
		}
		device := fmt.Sprintf("cpu/%s/%s (%d threads)", c.arch, simd, c.numCPU)
		return Selection{
			Kind:    KindAccelerated,
			Device:  device,
			Backend: NewAccelerated(device),
		}
	}

	device := fmt.Sprintf("cpu/%s (%d threads)", c.arch, c.numCPU)
	return Selection{
		Kind:    KindPlain,
		Device:  device,
		Backend: NewPlain(device),
	}
}

// windowCount returns the number of windows produced for n samples.
func windowCount(n, hop int) int {
	if hop <= 0 {
		return 0
	}
	return n/hop + 1
}

func rmsFromSum(sum float64, size int) float64 {
	if sum <= 0 {
		return 0
	}
	return math.Sqrt(sum / float64(size))
}
