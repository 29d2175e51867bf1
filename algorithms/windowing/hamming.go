package windowing

// hamming keeps a 0.08 pedestal at the edges
func hamming(size int) []float64 {
	return cosineSum(size, 0.54, 0.46)
}
