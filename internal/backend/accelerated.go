package backend

import "sync"

// Accelerated computes window energies from a running sum of squares, so each
// window costs O(1) after a single O(n) pass instead of O(size).
//
// The prefix buffer is a single shared context reused across calls. It is not
// safe for concurrent use on its own, so every call holds mu. Buffers larger
// than maxRetainedPrefix are dropped after the call.
type Accelerated struct {
	device string

	mu     sync.Mutex
	prefix []float64
}

// maxRetainedPrefix is the largest prefix buffer, in elements, kept between
// calls. 1<<22 float64s is 32 MiB, about 95 s of 44.1 kHz audio.
const maxRetainedPrefix = 1 << 22

// Compile-time check that Accelerated implements Backend.
var _ Backend = (*Accelerated)(nil)

// NewAccelerated creates an Accelerated backend with the given device descriptor.
func NewAccelerated(device string) *Accelerated {
	if device == "" {
		device = "cpu/simd"
	}
	return &Accelerated{device: device}
}

// Kind returns KindAccelerated.
func (a *Accelerated) Kind() Kind { return KindAccelerated }

// Device returns the device descriptor.
func (a *Accelerated) Device() string { return a.device }

// WindowRMS implements Backend.WindowRMS.
func (a *Accelerated) WindowRMS(samples []float32, size, hop int) []float64 {
	if size <= 0 {
		return nil
	}
	count := windowCount(len(samples), hop)
	out := make([]float64, count)
	n := len(samples)

	a.mu.Lock()
	defer a.mu.Unlock()

	prefix := a.scratch(n + 1)
	cumulativeSquares(prefix, samples)

	for i := 0; i < count; i++ {
		start := i * hop
		end := start + size
		if end > n {
			end = n
		}
		out[i] = rmsFromSum(prefix[end]-prefix[start], size)
	}

	if cap(a.prefix) > maxRetainedPrefix {
		a.prefix = nil
	}
	return out
}

// scratch returns a prefix buffer of length n, growing the shared one if needed.
func (a *Accelerated) scratch(n int) []float64 {
	if cap(a.prefix) < n {
		a.prefix = make([]float64, n)
	}
	return a.prefix[:n]
}

// cumulativeSquares fills prefix so that prefix[k] is the sum of squares of
// samples[:k]. len(prefix) must be len(samples)+1.
func cumulativeSquares(prefix []float64, samples []float32) {
	prefix[0] = 0
	var acc float64
	i := 0
	for ; i+4 <= len(samples); i += 4 {
		s0 := float64(samples[i])
		s1 := float64(samples[i+1])
		s2 := float64(samples[i+2])
		s3 := float64(samples[i+3])
		q0, q1, q2, q3 := s0*s0, s1*s1, s2*s2, s3*s3

		acc += q0
		prefix[i+1] = acc
		acc += q1
		prefix[i+2] = acc
		acc += q2
		prefix[i+3] = acc
		acc += q3
		prefix[i+4] = acc
	}
	for ; i < len(samples); i++ {
		s := float64(samples[i])
		acc += s * s
		prefix[i+1] = acc
	}
}
