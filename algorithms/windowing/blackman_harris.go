package windowing

// blackmanHarris is the minimum four-term Blackman-Harris window (-92 dB sidelobes)
func blackmanHarris(size int) []float64 {
	return cosineSum(size, 0.35875, 0.48829, 0.14128, 0.01168)
}
