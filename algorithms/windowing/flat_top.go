package windowing

// flatTop trades frequency resolution for amplitude accuracy
func flatTop(size int) []float64 {
	return cosineSum(size, 0.21557895, 0.41663158, 0.277263158, 0.083578947, 0.006947368)
}
