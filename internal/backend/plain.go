package backend

// Plain computes each window independently. It holds no state.
type Plain struct {
	device string
}

// Compile-time check that Plain implements Backend.
var _ Backend = (*Plain)(nil)

// NewPlain creates a Plain backend with the given device descriptor.
func NewPlain(device string) *Plain {
	if device == "" {
		device = "cpu"
	}
	return &Plain{device: device}
}

// Kind returns KindPlain.
func (p *Plain) Kind() Kind { return KindPlain }

// Device returns the device descriptor.
func (p *Plain) Device() string { return p.device }

// WindowRMS implements Backend.WindowRMS.
func (p *Plain) WindowRMS(samples []float32, size, hop int) []float64 {
	if size <= 0 {
		return nil
	}
	count := windowCount(len(samples), hop)
	out := make([]float64, count)
	n := len(samples)

	for i := 0; i < count; i++ {
		start := i * hop
		end := start + size
		if end > n {
			// Zero padding contributes nothing to the sum.
			end = n
		}
		var sum float64
		for j := start; j < end; j++ {
			v := float64(samples[j])
			sum += v * v
		}
		out[i] = rmsFromSum(sum, size)
	}
	return out
}
