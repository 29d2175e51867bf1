package common

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Aggregate selects how a row of values is reduced to a single number.
type Aggregate int

const (
	AggregateMean Aggregate = iota
	AggregateMin
	AggregateMax
	AggregateMedian
)

func (a Aggregate) String() string {
	switch a {
	case AggregateMean:
		return "mean"
	case AggregateMin:
		return "min"
	case AggregateMax:
		return "max"
	case AggregateMedian:
		return "median"
	default:
		return "unknown"
	}
}

// MarshalText encodes the aggregate by name for JSON configs.
func (a Aggregate) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText accepts "mean", "min", "max" and "median".
func (a *Aggregate) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "mean", "":
		*a = AggregateMean
	case "min":
		*a = AggregateMin
	case "max":
		*a = AggregateMax
	case "median":
		*a = AggregateMedian
	default:
		return fmt.Errorf("unknown aggregate %q", text)
	}
	return nil
}

// Reduce applies the aggregate to one row. Empty rows reduce to 0.
func (a Aggregate) Reduce(row []float64) float64 {
	if len(row) == 0 {
		return 0
	}

	switch a {
	case AggregateMin:
		return floats.Min(row)
	case AggregateMax:
		return floats.Max(row)
	case AggregateMedian:
		return Median(row)
	default:
		return Mean(row)
	}
}

// AggregateRows reduces every row of m to one value.
func AggregateRows(m [][]float64, a Aggregate) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		out[i] = a.Reduce(row)
	}
	return out
}
