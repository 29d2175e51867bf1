package filters

import (
	"fmt"
	"math"
	"math/cmplx"
)

// IIR is a direct-form II transposed filter
//
//	a[0]*y[n] = b[0]*x[n] + b[1]*x[n-1] + ... - a[1]*y[n-1] - ...
//
// Coefficients are normalized by a[0] at construction.
type IIR struct {
	b     []float64
	a     []float64
	state []float64
}

// NewIIR creates a filter from numerator b and denominator a coefficients.
func NewIIR(b, a []float64) (*IIR, error) {
	if len(b) == 0 || len(a) == 0 {
		return nil, fmt.Errorf("filter coefficients must not be empty")
	}
	if a[0] == 0 {
		return nil, fmt.Errorf("leading denominator coefficient must be non-zero")
	}

	order := max(len(a), len(b))
	f := &IIR{
		b:     make([]float64, order),
		a:     make([]float64, order),
		state: make([]float64, order-1),
	}
	for i, v := range b {
		f.b[i] = v / a[0]
	}
	for i, v := range a {
		f.a[i] = v / a[0]
	}
	return f, nil
}

// Process filters a single sample
func (f *IIR) Process(input float64) float64 {
	if len(f.state) == 0 {
		return f.b[0] * input
	}

	output := f.b[0]*input + f.state[0]
	last := len(f.state) - 1
	for i := 0; i < last; i++ {
		f.state[i] = f.b[i+1]*input + f.state[i+1] - f.a[i+1]*output
	}
	f.state[last] = f.b[last+1]*input - f.a[last+1]*output

	return output
}

// ProcessBuffer filters a whole buffer, continuing from the current state.
func (f *IIR) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = f.Process(sample)
	}
	return output
}

// Reset clears the delay line
func (f *IIR) Reset() {
	clear(f.state)
}

// FrequencyResponse evaluates H(e^jw) at the given frequency.
func (f *IIR) FrequencyResponse(frequency float64, sampleRate int) (magnitude, phase float64) {
	omega := 2.0 * math.Pi * frequency / float64(sampleRate)
	z := cmplx.Exp(complex(0, -omega))

	num, den := complex(0, 0), complex(0, 0)
	zk := complex(1, 0)
	for k := range f.b {
		num += complex(f.b[k], 0) * zk
		den += complex(f.a[k], 0) * zk
		zk *= z
	}

	h := num / den
	return cmplx.Abs(h), cmplx.Phase(h)
}

// NewDCRemoval creates the one-pole DC blocker
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// Onset envelopes are detrended with R = 0.99.
func NewDCRemoval(poleLocation float64) *IIR {
	if poleLocation <= 0 || poleLocation >= 1 {
		poleLocation = 0.995
	}
	// coefficients are valid by construction
	f, _ := NewIIR([]float64{1, -1}, []float64{1, -poleLocation})
	return f
}

// DCRemovalCutoff returns the -3dB cutoff of a DC blocker with pole R,
// using R = 1 - 2*pi*fc/fs.
func DCRemovalCutoff(poleLocation float64, sampleRate int) float64 {
	return (1.0 - poleLocation) * float64(sampleRate) / (2.0 * math.Pi)
}
