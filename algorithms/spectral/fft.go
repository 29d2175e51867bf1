package spectral

import (
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT transforms complex sequences of any length through mjibson/go-dsp.
// The constant-Q filters are moved to the frequency domain with it.
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// ComputeComplex returns the forward transform of x. x is not modified.
func (f *FFT) ComputeComplex(x []complex128) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.FFT(x)
}

// RealFFT is a fixed-size real-input transform backed by gonum's fourier package.
// It keeps internal work buffers and must not be shared between goroutines.
type RealFFT struct {
	size int
	fft  *fourier.FFT
}

// NewRealFFT creates a real transform for frames of length size
func NewRealFFT(size int) *RealFFT {
	return &RealFFT{size: size, fft: fourier.NewFFT(size)}
}

// Size returns the frame length
func (r *RealFFT) Size() int {
	return r.size
}

// Forward writes the size/2+1 non-negative frequency bins of frame into dst.
// dst is allocated when nil.
func (r *RealFFT) Forward(dst []complex128, frame []float64) []complex128 {
	return r.fft.Coefficients(dst, frame)
}

// Inverse writes the real sequence for the given half spectrum into dst,
// normalized so that Inverse(Forward(x)) == x.
func (r *RealFFT) Inverse(dst []float64, coeffs []complex128) []float64 {
	dst = r.fft.Sequence(dst, coeffs)
	scale := 1.0 / float64(r.size)
	for i := range dst {
		dst[i] *= scale
	}
	return dst
}
