package temporal

import (
	"errors"
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-piano/algorithms/common"
	"github.com/RyanBlaney/sonido-piano/algorithms/spectral"
	"github.com/RyanBlaney/sonido-piano/algorithms/windowing"
	"github.com/RyanBlaney/sonido-piano/logging"
)

// ErrEmptyEnvelope is returned when a tempogram is requested for no frames
var ErrEmptyEnvelope = errors.New("onset strength envelope must be calculated prior to estimating tempo")

// TempoConfig holds parameters for the global tempo estimate
type TempoConfig struct {
	StartBPM  float64          `json:"start_bpm"` // centre of the log-normal prior
	StdBPM    float64          `json:"std_bpm"`   // prior deviation in octaves
	ACSize    float64          `json:"ac_size"`   // autocorrelation window in seconds
	MaxTempo  float64          `json:"max_tempo"` // at or near 0 every lag is rejected and StartBPM is returned
	Aggregate common.Aggregate `json:"aggregate"`
	Window    windowing.Type   `json:"window"`
	Norm      common.NormType  `json:"norm"`
	Center    bool             `json:"center"`
}

// DefaultTempoConfig returns a 120 BPM prior over 8 second windows
func DefaultTempoConfig() TempoConfig {
	return TempoConfig{
		StartBPM:  120,
		StdBPM:    1,
		ACSize:    8,
		MaxTempo:  320,
		Aggregate: common.AggregateMean,
		Window:    windowing.Hann,
		Norm:      common.NormInf,
		Center:    true,
	}
}

// Validate checks the prior and window parameters
func (c TempoConfig) Validate() error {
	if c.StartBPM <= 0 {
		return fmt.Errorf("start BPM must be positive and non-zero, got %g", c.StartBPM)
	}
	if c.StdBPM <= 0 {
		return fmt.Errorf("tempo prior deviation must be positive, got %g", c.StdBPM)
	}
	if c.ACSize <= 0 {
		return fmt.Errorf("length in seconds of the auto-correlation window must be > 0, got %g", c.ACSize)
	}
	if c.MaxTempo < 0 {
		return fmt.Errorf("max tempo must not be negative, got %g", c.MaxTempo)
	}
	return nil
}

// Tempogram returns the local autocorrelation of the onset envelope
// (Grosche, Mueller and Kurth 2010) as frames x lags. Every window of winLen
// frames is tapered and autocorrelated through a zero-padded FFT, then
// normalized. With center the envelope is padded by linear ramps so that a
// window starts at every frame. An envelope shorter than one window yields
// an empty tempogram.
func Tempogram(env []float64, winLen int, center bool, window windowing.Type, norm common.NormType) ([][]float64, error) {
	if len(env) == 0 {
		return nil, ErrEmptyEnvelope
	}
	if winLen <= 0 {
		return nil, fmt.Errorf("window length must be positive and non-zero, got %d", winLen)
	}

	padded := env
	if center {
		padded = rampPad(env, winLen)
	}
	if len(padded) < winLen {
		return [][]float64{}, nil
	}

	nFrames := min(len(env), len(padded)-winLen)
	taper := windowing.Coefficients(window, winLen)

	nFft := 2*winLen + 1
	fft := spectral.NewRealFFT(nFft)
	frame := make([]float64, nFft)
	spectrum := make([]complex128, nFft/2+1)

	tg := make([][]float64, nFrames)
	for i := range tg {
		clear(frame)
		for k, w := range taper {
			frame[k] = padded[i+k] * w
		}

		fft.Forward(spectrum, frame)
		for k, c := range spectrum {
			spectrum[k] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
		}
		acf := fft.Inverse(nil, spectrum)

		row := make([]float64, winLen)
		copy(row, acf[:winLen])
		common.NormalizeInPlace(row, norm)
		tg[i] = row
	}
	return tg, nil
}

// rampPad centers env in winLen extra samples that ramp linearly from zero
// up to the first value and from the last value down to zero.
func rampPad(env []float64, winLen int) []float64 {
	head := winLen / 2
	tail := winLen - head

	padded := make([]float64, len(env)+winLen)
	copy(padded[head:], env)

	first, last := env[0], env[len(env)-1]
	for i := range head {
		padded[i] = first / float64(head) * float64(i)
	}
	for i := range tail {
		padded[len(padded)-1-i] = last / float64(tail) * float64(i)
	}
	return padded
}

// MostProbableTempo estimates a global tempo in BPM from the onset envelope.
// It returns 0 when the envelope is too short for one autocorrelation window
// and StartBPM when the zero lag wins.
func MostProbableTempo(env []float64, rate, hop int, cfg TempoConfig) (float64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	if rate <= 0 || hop <= 0 {
		return 0, fmt.Errorf("sample rate and hop length must be positive, got %d and %d", rate, hop)
	}
	if len(env) == 0 {
		return 0, nil
	}

	winLen := int(cfg.ACSize * float64(rate) / float64(hop))
	tg, err := Tempogram(env, winLen, cfg.Center, cfg.Window, cfg.Norm)
	if err != nil {
		return 0, err
	}
	if len(tg) == 0 {
		// audio is too short
		return 0, nil
	}

	strength := common.AggregateRows(common.Transpose(tg), cfg.Aggregate)

	best, bestWeight := 0, 0.0
	logStart := math.Log2(cfg.StartBPM)
	for lag := 1; lag < len(strength); lag++ {
		bpm := lagToBPM(lag, rate, hop)
		if cfg.MaxTempo <= float32Epsilon || bpm > cfg.MaxTempo {
			continue
		}

		z := (math.Log2(bpm) - logStart) / cfg.StdBPM
		if w := strength[lag] * math.Exp(-0.5*z*z); w > bestWeight {
			best, bestWeight = lag, w
		}
	}

	logging.Debug("tempo estimated", logging.Fields{
		"component": "tempo",
		"frames":    len(tg),
		"window":    winLen,
		"best_lag":  best,
	})

	if best == 0 {
		return cfg.StartBPM, nil
	}
	return lagToBPM(best, rate, hop), nil
}

// float32Epsilon is the float32 machine epsilon
const float32Epsilon = 1.1920929e-07

func lagToBPM(lag, rate, hop int) float64 {
	return 60 * float64(rate) / float64(hop*lag)
}
