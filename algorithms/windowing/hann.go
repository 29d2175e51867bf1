package windowing

// hann is the raised cosine 0.5 - 0.5 cos(2 pi n / (N-1))
func hann(size int) []float64 {
	return cosineSum(size, 0.5, 0.5)
}
