package windowing

import "math"

// triangular is the Bartlett window, zero at both ends
func triangular(size int) []float64 {
	coeffs := make([]float64, size)
	if size == 1 {
		coeffs[0] = 1
		return coeffs
	}

	half := float64(size-1) / 2
	for i := range size {
		coeffs[i] = 1 - math.Abs((float64(i)-half)/half)
	}
	return coeffs
}
