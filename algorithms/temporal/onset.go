package temporal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-piano/algorithms/common"
	"github.com/RyanBlaney/sonido-piano/algorithms/filters"
)

// Peak-picking constants tuned on the CPJKU onset_db dataset (Boeck et al. 2012)
const (
	peakMaxSeconds  = 0.03
	peakAvgSeconds  = 0.2
	peakWaitSeconds = 0.03
	peakDelta       = 0.07

	detrendPole = 0.99
)

// OnsetConfig holds parameters for the onset strength envelope
type OnsetConfig struct {
	Lag       int              `json:"lag"`      // frames between compared spectra
	MaxSize   int              `json:"max_size"` // local-max filter over frequency, 1 disables
	Detrend   bool             `json:"detrend"`
	Center    bool             `json:"center"`
	Aggregate common.Aggregate `json:"aggregate"`
}

// DefaultOnsetConfig returns lag 1, no vibrato suppression, centered frames
func DefaultOnsetConfig() OnsetConfig {
	return OnsetConfig{
		Lag:       1,
		MaxSize:   1,
		Detrend:   false,
		Center:    true,
		Aggregate: common.AggregateMean,
	}
}

// Validate checks lag and filter size
func (c OnsetConfig) Validate() error {
	if c.Lag < 1 {
		return fmt.Errorf("onset strength envelope lag must be >= 1, got %d", c.Lag)
	}
	if c.MaxSize < 1 {
		return fmt.Errorf("onset strength envelope max size must be >= 1, got %d", c.MaxSize)
	}
	return nil
}

// OnsetEnvelope computes the spectral-flux onset strength of a frames x bins
// spectrogram: aggregate_f max(0, P[t, f] - Pref[t-lag, f]), where Pref is P
// after an optional local-max filter along frequency (Boeck and Widmer 2013).
//
// fftLength and hop describe the framing of P and are only used to center
// the envelope on the frames.
func OnsetEnvelope(P [][]float64, cfg OnsetConfig, fftLength, hop int) ([]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Center && hop <= 0 {
		return nil, fmt.Errorf("hop length must be positive to center the envelope, got %d", hop)
	}

	nFrames := len(P)
	nDiff := max(0, nFrames-cfg.Lag)

	diff := make([][]float64, nDiff)
	for t := range diff {
		ref := P[t]
		if cfg.MaxSize > 1 {
			ref = localMax(ref, cfg.MaxSize)
		}

		cur := P[t+cfg.Lag]
		if len(cur) != len(ref) {
			return nil, fmt.Errorf("spectrogram is not rectangular at frame %d", t+cfg.Lag)
		}

		row := make([]float64, len(cur))
		for f, v := range cur {
			// only rising energy counts
			row[f] = math.Max(0, v-ref[f])
		}
		diff[t] = row
	}

	pad := cfg.Lag
	if cfg.Center {
		pad += fftLength / 2 / hop
	}

	env := make([]float64, pad, pad+nDiff)
	env = append(env, common.AggregateRows(diff, cfg.Aggregate)...)

	if cfg.Detrend {
		env = filters.NewDCRemoval(detrendPole).ProcessBuffer(env)
	}

	if cfg.Center {
		env = resize(env, nFrames)
	}
	return env, nil
}

// OnsetPeaks picks onset frames from an envelope. A frame is kept when it is
// the maximum of the ~30 ms on either side of it, exceeds the ~200 ms local
// mean by 0.07 after min-max normalization, and lies more than ~30 ms after
// the previous onset. The envelope is not modified.
func OnsetPeaks(env []float64, rate, hop int, backtrack bool) ([]int, error) {
	if rate <= 0 || hop <= 0 {
		return nil, fmt.Errorf("sample rate and hop length must be positive, got %d and %d", rate, hop)
	}

	peaks := []int{}
	allZero := true
	for _, v := range env {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return peaks, nil
	}

	// detrending may leave negatives, so shift into [0, 1]
	x := common.MinMaxNormalize(env)
	n := len(x)

	framesPerSecond := float64(rate) / float64(hop)
	maxLen := oddLength(int(math.Ceil(peakMaxSeconds * framesPerSecond)))
	avgLen := oddLength(int(math.Ceil(peakAvgSeconds * framesPerSecond)))
	wait := int(math.Ceil(peakWaitSeconds * framesPerSecond))

	// the max window looks as far ahead as behind, so a step on a rising
	// edge does not count as its own peak
	reach := 2 * (maxLen / 2)
	halfAvg := avgLen / 2

	for i := range n {
		if len(peaks) > 0 && i <= peaks[len(peaks)-1]+wait {
			continue
		}

		localMaxVal := 0.0
		for j := max(0, i-reach); j <= min(n-1, i+reach); j++ {
			localMaxVal = math.Max(localMaxVal, x[j])
		}
		if x[i] != localMaxVal {
			continue
		}

		sum := 0.0
		for j := max(0, i-halfAvg); j <= min(n-1, i+halfAvg); j++ {
			sum += x[j]
		}
		count := min(halfAvg, i) + min(halfAvg, n-i-1) + 1
		if x[i]-sum/float64(count) >= peakDelta {
			peaks = append(peaks, i)
		}
	}

	if backtrack {
		peaks = backtrackPeaks(peaks, x)
	}
	return peaks, nil
}

// backtrackPeaks rolls every onset back to the nearest preceding local
// minimum of the energy (Jehan 2005). Onsets that land on the same minimum
// are merged.
func backtrackPeaks(peaks []int, energy []float64) []int {
	if len(peaks) == 0 {
		return peaks
	}

	minima := []int{0}
	for i := 1; i < len(energy)-1; i++ {
		if energy[i] <= energy[i-1] && energy[i] < energy[i+1] {
			minima = append(minima, i)
		}
	}

	out := make([]int, 0, len(peaks))
	m := 0
	for _, p := range peaks {
		for m+1 < len(minima) && minima[m+1] <= p {
			m++
		}
		if len(out) == 0 || minima[m] > out[len(out)-1] {
			out = append(out, minima[m])
		}
	}
	return out
}

// localMax is a centered max filter that ignores positions outside the row
func localMax(row []float64, size int) []float64 {
	before := size / 2
	after := size - 1 - before

	out := make([]float64, len(row))
	for i := range row {
		m := math.Inf(-1)
		for j := max(0, i-before); j <= min(len(row)-1, i+after); j++ {
			m = math.Max(m, row[j])
		}
		out[i] = m
	}
	return out
}

func oddLength(n int) int {
	return n + n%2 + 1
}

// resize truncates or zero-extends x to n samples
func resize(x []float64, n int) []float64 {
	if len(x) >= n {
		return x[:n]
	}
	out := make([]float64, n)
	copy(out, x)
	return out
}
