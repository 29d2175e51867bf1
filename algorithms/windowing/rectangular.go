package windowing

// rectangular (boxcar) leaves the frame unchanged
func rectangular(size int) []float64 {
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	return coeffs
}
