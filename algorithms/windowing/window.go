package windowing

import (
	"fmt"
	"math"
	"strings"
)

// Type identifies a window shape
type Type int

const (
	Rectangular Type = iota
	Hann
	Hamming
	Blackman
	BlackmanHarris
	FlatTop
	Kaiser
	Triangular
)

// DefaultKaiserBeta is used when a Kaiser window is requested through New
const DefaultKaiserBeta = 14.0

func (t Type) String() string {
	switch t {
	case Rectangular:
		return "rectangular"
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	case Blackman:
		return "blackman"
	case BlackmanHarris:
		return "blackman_harris"
	case FlatTop:
		return "flat_top"
	case Kaiser:
		return "kaiser"
	case Triangular:
		return "triangular"
	default:
		return "unknown"
	}
}

// MarshalText encodes the window by name for JSON configs
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a window name. "rect" and "bartlett" are accepted as aliases.
func (t *Type) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "rectangular", "rect", "boxcar":
		*t = Rectangular
	case "hann", "hanning", "":
		*t = Hann
	case "hamming":
		*t = Hamming
	case "blackman":
		*t = Blackman
	case "blackman_harris", "blackmanharris":
		*t = BlackmanHarris
	case "flat_top", "flattop":
		*t = FlatTop
	case "kaiser":
		*t = Kaiser
	case "triangular", "bartlett", "triang":
		*t = Triangular
	default:
		return fmt.Errorf("unknown window type %q", text)
	}
	return nil
}

// Window holds a precomputed symmetric window table
type Window struct {
	kind         Type
	size         int
	coefficients []float64
}

// New creates a symmetric window of the given type and size
func New(kind Type, size int) *Window {
	if size < 0 {
		size = 0
	}

	var coeffs []float64
	switch kind {
	case Hann:
		coeffs = hann(size)
	case Hamming:
		coeffs = hamming(size)
	case Blackman:
		coeffs = blackman(size)
	case BlackmanHarris:
		coeffs = blackmanHarris(size)
	case FlatTop:
		coeffs = flatTop(size)
	case Kaiser:
		coeffs = kaiser(size, DefaultKaiserBeta)
	case Triangular:
		coeffs = triangular(size)
	default:
		kind = Rectangular
		coeffs = rectangular(size)
	}

	return &Window{kind: kind, size: size, coefficients: coeffs}
}

// Coefficients is a shortcut for New(kind, size).Coefficients()
func Coefficients(kind Type, size int) []float64 {
	return New(kind, size).coefficients
}

// cosineSum evaluates sum_k (-1)^k a_k cos(2 pi k n / (N-1))
func cosineSum(size int, a ...float64) []float64 {
	coeffs := make([]float64, size)
	if size == 1 {
		coeffs[0] = 1
		return coeffs
	}

	denominator := float64(size - 1)
	for i := range size {
		sign := 1.0
		for k, ak := range a {
			coeffs[i] += sign * ak * math.Cos(2*math.Pi*float64(k)*float64(i)/denominator)
			sign = -sign
		}
	}
	return coeffs
}

// Apply applies the window to a signal (creates new array)
func (w *Window) Apply(signal []float64) []float64 {
	if len(signal) != w.size {
		return nil
	}

	windowed := make([]float64, w.size)
	for i, c := range w.coefficients {
		windowed[i] = signal[i] * c
	}
	return windowed
}

// ApplyInPlace applies the window to a signal in-place
func (w *Window) ApplyInPlace(signal []float64) error {
	if len(signal) != w.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), w.size)
	}

	for i, c := range w.coefficients {
		signal[i] *= c
	}
	return nil
}

// ApplyComplexInPlace scales each complex sample by the window
func (w *Window) ApplyComplexInPlace(signal []complex128) error {
	if len(signal) != w.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), w.size)
	}

	for i, c := range w.coefficients {
		signal[i] *= complex(c, 0)
	}
	return nil
}

// Coefficients returns a copy of the window coefficients
func (w *Window) Coefficients() []float64 {
	coeffs := make([]float64, len(w.coefficients))
	copy(coeffs, w.coefficients)
	return coeffs
}

// Size returns the window size
func (w *Window) Size() int {
	return w.size
}

// Type returns the window type
func (w *Window) Type() Type {
	return w.kind
}
