package spectral

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-piano/algorithms/common"
)

// Decibel conversion defaults
const (
	DefaultPowerAMin     = 1e-10
	DefaultAmplitudeAMin = 1e-5
	DefaultTopDB         = 80.0
	DefaultSilenceTopDB  = 60.0
)

// Amplitude2Power squares every value of a frames x bins matrix
func Amplitude2Power(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for t, row := range m {
		out[t] = make([]float64, len(row))
		for k, v := range row {
			out[t][k] = v * v
		}
	}
	return out
}

// Power2DB converts power to decibels relative to ref:
//
//	10*log10(max(aMin, S)) - 10*log10(max(aMin, ref))
//
// A positive topDB floors the output at max - topDB.
func Power2DB(m [][]float64, ref, aMin, topDB float64) ([][]float64, error) {
	if aMin <= 0 {
		return nil, fmt.Errorf("aMin must be strictly positive, got %g", aMin)
	}
	if topDB < 0 {
		return nil, fmt.Errorf("topDB must be non-negative, got %g", topDB)
	}

	refDB := 10.0 * math.Log10(math.Max(aMin, math.Abs(ref)))
	peak := math.Inf(-1)

	out := make([][]float64, len(m))
	for t, row := range m {
		out[t] = make([]float64, len(row))
		for k, v := range row {
			if v < 0 {
				return nil, fmt.Errorf("power spectrogram has negative value %g at frame %d bin %d", v, t, k)
			}
			db := 10.0*math.Log10(math.Max(aMin, v)) - refDB
			out[t][k] = db
			peak = math.Max(peak, db)
		}
	}

	if topDB > 0 && !math.IsInf(peak, -1) {
		floor := peak - topDB
		for _, row := range out {
			for k, v := range row {
				if v < floor {
					row[k] = floor
				}
			}
		}
	}

	return out, nil
}

// Amplitude2DB converts magnitudes to decibels: Power2DB(S^2, ref^2, aMin^2, topDB)
func Amplitude2DB(m [][]float64, ref, aMin, topDB float64) ([][]float64, error) {
	return Power2DB(Amplitude2Power(m), ref*ref, aMin*aMin, topDB)
}

// TrimSilence finds the non-silent frame range [start, end) of a frames x bins
// power spectrogram. A frame is silent when its mean power is at least topDB
// below the loudest frame. Fully silent input yields an empty range.
func TrimSilence(m [][]float64, aMin, topDB float64) (start, end int, err error) {
	if len(m) == 0 {
		return 0, 0, nil
	}

	means := common.AggregateRows(m, common.AggregateMean)
	peak := 0.0
	for _, v := range means {
		peak = math.Max(peak, v)
	}
	if peak <= aMin {
		return 0, 0, nil
	}

	db, err := Power2DB([][]float64{means}, peak, aMin, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("trim silence: %w", err)
	}

	start, end = -1, -1
	for t, v := range db[0] {
		if v > -topDB {
			if start < 0 {
				start = t
			}
			end = t + 1
		}
	}
	if start < 0 {
		return 0, 0, nil
	}
	return start, end, nil
}
