package common

import (
	"fmt"
	"strings"
)

// PadMode selects how a signal is extended past its edges.
type PadMode int

const (
	// PadConstant extends with zeros.
	PadConstant PadMode = iota
	// PadMirror reflects about the edge sample without repeating it.
	PadMirror
	// PadReplicate repeats the edge sample.
	PadReplicate
	// PadWrap continues periodically from the other end.
	PadWrap
)

func (p PadMode) String() string {
	switch p {
	case PadConstant:
		return "constant"
	case PadMirror:
		return "reflect"
	case PadReplicate:
		return "edge"
	case PadWrap:
		return "wrap"
	default:
		return "unknown"
	}
}

// MarshalText encodes the mode by name for JSON configs.
func (p PadMode) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts the names returned by String plus "mirror" and "replicate".
func (p *PadMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "constant", "zero":
		*p = PadConstant
	case "reflect", "mirror", "":
		*p = PadMirror
	case "edge", "replicate":
		*p = PadReplicate
	case "wrap":
		*p = PadWrap
	default:
		return fmt.Errorf("unknown pad mode %q", text)
	}
	return nil
}

// sourceIndex maps a position outside [0, n) back into the signal.
// ok is false when the position should be zero-filled.
func (p PadMode) sourceIndex(i, n int) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}

	switch p {
	case PadMirror:
		if n == 1 {
			return 0, true
		}
		period := 2 * (n - 1)
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - i
		}
		return i, true
	case PadReplicate:
		if i < 0 {
			return 0, true
		}
		return n - 1, true
	case PadWrap:
		i %= n
		if i < 0 {
			i += n
		}
		return i, true
	default:
		return 0, false
	}
}

// PadCentered returns x extended by pad samples on both sides.
func PadCentered(x []float64, pad int, mode PadMode) []float64 {
	out := make([]float64, len(x)+2*pad)
	if len(x) == 0 {
		return out
	}

	for i := range out {
		if src, ok := mode.sourceIndex(i-pad, len(x)); ok {
			out[i] = x[src]
		}
	}
	return out
}

// PadAxis pads the rows (axis 0) or the columns (axis 1) of a rectangular
// matrix by before/after entries.
func PadAxis(m [][]float64, axis, before, after int, mode PadMode) [][]float64 {
	if len(m) == 0 {
		return [][]float64{}
	}

	rows, cols := len(m), len(m[0])
	if axis == 0 {
		out := make([][]float64, rows+before+after)
		for i := range out {
			out[i] = make([]float64, cols)
			if src, ok := mode.sourceIndex(i-before, rows); ok {
				copy(out[i], m[src])
			}
		}
		return out
	}

	out := make([][]float64, rows)
	for i, row := range m {
		out[i] = make([]float64, cols+before+after)
		for j := range out[i] {
			if src, ok := mode.sourceIndex(j-before, cols); ok {
				out[i][j] = row[src]
			}
		}
	}
	return out
}
