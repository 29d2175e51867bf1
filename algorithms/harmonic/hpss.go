package harmonic

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-piano/algorithms/common"
	"github.com/RyanBlaney/sonido-piano/logging"
)

// maskEpsilon is the energy below which both references count as silent
const maskEpsilon = 1.1920929e-07

// HPSSConfig holds parameters for median-filtering source separation
type HPSSConfig struct {
	KernelHarmonic   int     `json:"kernel_harmonic"`   // frames, along time
	KernelPercussive int     `json:"kernel_percussive"` // bins, along frequency
	Power            float64 `json:"power"`             // +Inf gives a binary mask
	MarginHarmonic   float64 `json:"margin_harmonic"`
	MarginPercussive float64 `json:"margin_percussive"`
}

// DefaultHPSSConfig returns 31x31 kernels with a Wiener-like power-2 mask
func DefaultHPSSConfig() HPSSConfig {
	return HPSSConfig{
		KernelHarmonic:   31,
		KernelPercussive: 31,
		Power:            2,
		MarginHarmonic:   1,
		MarginPercussive: 1,
	}
}

// Validate checks kernel sizes, power and margins
func (c HPSSConfig) Validate() error {
	if c.KernelHarmonic < 1 || c.KernelPercussive < 1 {
		return fmt.Errorf("median kernels must be >= 1, got %d and %d", c.KernelHarmonic, c.KernelPercussive)
	}
	if !(c.Power > 0) {
		return fmt.Errorf("exponent for the Wiener filter must be strictly positive, got %g", c.Power)
	}
	if math.Min(c.MarginHarmonic, c.MarginPercussive) < 1 {
		return fmt.Errorf("HPSS margins must be >= 1.0, a typical range is [1...10], got %g and %g",
			c.MarginHarmonic, c.MarginPercussive)
	}
	return nil
}

// Separation is a spectrogram split into its tonal and transient parts.
// Both are frames x bins like the input.
type Separation struct {
	Harmonic   [][]float64
	Percussive [][]float64
}

// Separate splits a non-negative frames x bins spectrogram with median
// filtering (Fitzgerald 2010). With margins above 1 a residual remains,
// S = H + P + R (Driedger et al. 2014).
func Separate(S [][]float64, cfg HPSSConfig) (*Separation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(S) == 0 {
		return &Separation{Harmonic: [][]float64{}, Percussive: [][]float64{}}, nil
	}

	nBins := len(S[0])
	for i, frame := range S {
		if len(frame) != nBins {
			return nil, fmt.Errorf("spectrogram is not rectangular: frame %d has %d bins, want %d", i, len(frame), nBins)
		}
	}

	logger := logging.WithFields(logging.Fields{
		"component": "hpss",
		"function":  "Separate",
	})

	harmRef := medianFilter(S, 0, cfg.KernelHarmonic)
	percRef := medianFilter(S, 1, cfg.KernelPercussive)

	splitZeros := cfg.MarginHarmonic == 1 && cfg.MarginPercussive == 1

	sep := &Separation{
		Harmonic:   make([][]float64, len(S)),
		Percussive: make([][]float64, len(S)),
	}
	for t, frame := range S {
		sep.Harmonic[t] = make([]float64, nBins)
		sep.Percussive[t] = make([]float64, nBins)

		for f, x := range frame {
			h, p := harmRef[t][f], percRef[t][f]
			sep.Harmonic[t][f] = x * softMask(h, cfg.MarginHarmonic*p, cfg.Power, splitZeros)
			sep.Percussive[t][f] = x * softMask(p, cfg.MarginPercussive*h, cfg.Power, splitZeros)
		}
	}

	logger.Debug("separated", logging.Fields{
		"frames": len(S),
		"bins":   nBins,
		"split":  splitZeros,
	})
	return sep, nil
}

// softMask returns x^p / (x^p + ref^p), rescaled by max(x, ref) so large
// powers do not overflow. Ties of a binary mask go to the reference.
func softMask(x, ref, power float64, splitZeros bool) float64 {
	if math.IsInf(power, 1) {
		if x > ref {
			return 1
		}
		return 0
	}

	z := math.Max(x, ref)
	if z <= maskEpsilon {
		if splitZeros {
			return 0.5
		}
		return 0
	}

	xp := math.Pow(x/z, power)
	return xp / (xp + math.Pow(ref/z, power))
}

// medianFilter runs a 1-D median of length size along axis 0 (time) or
// axis 1 (frequency) with mirror padding.
func medianFilter(m [][]float64, axis, size int) [][]float64 {
	rows, cols := len(m), len(m[0])
	before := size / 2
	after := size - 1 - before

	if axis == 0 {
		padded := common.PadAxis(m, 0, before, after, common.PadMirror)
		out := make([][]float64, rows)
		window := make([]float64, size)
		for t := range out {
			out[t] = make([]float64, cols)
		}
		for f := range cols {
			for t := range rows {
				for k := range size {
					window[k] = padded[t+k][f]
				}
				out[t][f] = common.Median(window)
			}
		}
		return out
	}

	padded := common.PadAxis(m, 1, before, after, common.PadMirror)
	out := make([][]float64, rows)
	for t := range out {
		out[t] = make([]float64, cols)
		for f := range cols {
			out[t][f] = common.Median(padded[t][f : f+size])
		}
	}
	return out
}
