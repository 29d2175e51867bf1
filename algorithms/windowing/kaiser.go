package windowing

import "math"

// NewKaiser creates a symmetric Kaiser window with an explicit beta
func NewKaiser(size int, beta float64) *Window {
	if size < 0 {
		size = 0
	}
	return &Window{kind: Kaiser, size: size, coefficients: kaiser(size, beta)}
}

func kaiser(size int, beta float64) []float64 {
	coeffs := make([]float64, size)
	if size == 1 {
		coeffs[0] = 1
		return coeffs
	}

	denominator := float64(size - 1)
	i0Beta := BesselI0(beta)

	for i := range size {
		arg := 2.0*float64(i)/denominator - 1.0
		coeffs[i] = BesselI0(beta*math.Sqrt(math.Max(0, 1-arg*arg))) / i0Beta
	}
	return coeffs
}

// BesselI0 computes the zero-order modified Bessel function of the first kind
func BesselI0(x float64) float64 {
	// Series expansion, relative convergence keeps large beta accurate
	sum := 1.0
	term := 1.0

	for i := 1; i < 500; i++ {
		term *= (x / (2.0 * float64(i))) * (x / (2.0 * float64(i)))
		sum += term

		if term < 1e-16*sum {
			break
		}
	}

	return sum
}
