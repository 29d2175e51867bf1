package windowing

// blackman is the classic three-term window
func blackman(size int) []float64 {
	coeffs := cosineSum(size, 0.42, 0.5, 0.08)
	// the exact coefficients sum to a tiny negative value at the edges
	for i, c := range coeffs {
		if c < 0 {
			coeffs[i] = 0
		}
	}
	return coeffs
}
