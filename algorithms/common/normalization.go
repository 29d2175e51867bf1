package common

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// NormType selects the vector norm used to normalize filters, chroma frames
// and autocorrelation windows.
type NormType int

const (
	NormNone NormType = iota
	NormL1
	NormL2
	NormInf
)

func (n NormType) String() string {
	switch n {
	case NormNone:
		return "none"
	case NormL1:
		return "l1"
	case NormL2:
		return "l2"
	case NormInf:
		return "inf"
	default:
		return "unknown"
	}
}

// MarshalText encodes the norm by name for JSON configs.
func (n NormType) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText accepts "none", "l1", "l2" and "inf".
func (n *NormType) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "none", "":
		*n = NormNone
	case "l1":
		*n = NormL1
	case "l2":
		*n = NormL2
	case "inf", "max":
		*n = NormInf
	default:
		return fmt.Errorf("unknown norm type %q", text)
	}
	return nil
}

// Norm computes the requested norm of x. NormNone returns 0 so that callers
// skip the division.
func Norm(x []float64, t NormType) float64 {
	if len(x) == 0 {
		return 0
	}

	switch t {
	case NormL1:
		return floats.Norm(x, 1)
	case NormL2:
		return floats.Norm(x, 2)
	case NormInf:
		return floats.Norm(x, math.Inf(1))
	default:
		return 0
	}
}

// NormComplex computes the norm of a complex vector over its magnitudes.
// NormNone returns 1, which leaves the vector unchanged when divided.
func NormComplex(x []complex128, t NormType) float64 {
	switch t {
	case NormNone:
		return 1
	case NormL1:
		sum := 0.0
		for _, v := range x {
			sum += cmplx.Abs(v)
		}
		return sum
	case NormL2:
		sum := 0.0
		for _, v := range x {
			a := cmplx.Abs(v)
			sum += a * a
		}
		return math.Sqrt(sum)
	case NormInf:
		max := 0.0
		for _, v := range x {
			max = math.Max(max, cmplx.Abs(v))
		}
		return max
	default:
		return 1
	}
}

// NormalizeInPlace divides x by its norm. Vectors with a zero norm and
// NormNone are left untouched.
func NormalizeInPlace(x []float64, t NormType) {
	if n := Norm(x, t); n != 0 {
		floats.Scale(1/n, x)
	}
}
