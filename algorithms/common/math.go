package common

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// Median returns the middle value of data (the mean of the two middle values
// for an even length). The input is not modified.
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// MinMaxNormalize normalizes data to [0, 1] range
func MinMaxNormalize(data []float64) []float64 {
	if len(data) == 0 {
		return data
	}

	min := floats.Min(data)
	max := floats.Max(data)

	normalized := make([]float64, len(data))
	if max-min == 0 {
		return normalized
	}

	for i, val := range data {
		normalized[i] = (val - min) / (max - min)
	}

	return normalized
}

// Num2Factors reports how many times x can be evenly divided by 2.
func Num2Factors(x int) int {
	if x <= 0 {
		return 0
	}
	n := 0
	for ; x%2 == 0; x /= 2 {
		n++
	}
	return n
}

// IsPowerOfTwo checks if n is a power of two
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// NextPowerOfTwo returns the smallest power of two >= n
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << uint(math.Ceil(math.Log2(float64(n))))
}

// Transpose swaps rows and columns of a rectangular matrix.
func Transpose(m [][]float64) [][]float64 {
	if len(m) == 0 {
		return [][]float64{}
	}

	rows, cols := len(m), len(m[0])
	out := make([][]float64, cols)
	for j := range cols {
		out[j] = make([]float64, rows)
		for i := range rows {
			out[j][i] = m[i][j]
		}
	}
	return out
}

// MinMax2D returns the smallest and largest value of a matrix.
// An empty matrix yields (0, 0).
func MinMax2D(m [][]float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	seen := false
	for _, row := range m {
		if len(row) == 0 {
			continue
		}
		seen = true
		lo = math.Min(lo, floats.Min(row))
		hi = math.Max(hi, floats.Max(row))
	}
	if !seen {
		return 0, 0
	}
	return lo, hi
}

// Clone2D deep-copies a matrix.
func Clone2D(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
	}
	return out
}
