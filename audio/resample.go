package audio

import (
	"fmt"
	"math"
	"sync"

	"github.com/RyanBlaney/sonido-piano/algorithms/windowing"
)

// Band-limited interpolation table: 64 zero crossings of a Kaiser-tapered sinc,
// sampled 512 times per crossing.
const (
	resampleZeros     = 64
	resamplePrecision = 512
	resampleBeta      = 14.769656459379492
	resampleRolloff   = 0.9475937167399596
)

var (
	interpTableOnce sync.Once
	interpTable     []float64
)

func interpolationTable() []float64 {
	interpTableOnce.Do(func() {
		n := resampleZeros * resamplePrecision
		taper := windowing.NewKaiser(2*n+1, resampleBeta).Coefficients()[n:]

		interpTable = make([]float64, n+1)
		for i := range interpTable {
			x := resampleRolloff * float64(resampleZeros) * float64(i) / float64(n)
			interpTable[i] = resampleRolloff * sinc(x) * taper[i]
		}
	})
	return interpTable
}

// sinc is the normalized sinc sin(pi x)/(pi x)
func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// MonoResample replaces the samples with a band-limited resampling at rate.
// Downsampling keeps the amplitude, so energy scales with the ratio.
func (s *Signal) MonoResample(rate int) error {
	if rate <= 0 || s.SampleRate <= 0 {
		return fmt.Errorf("invalid resample rates %d --> %d", s.SampleRate, rate)
	}
	if rate == s.SampleRate {
		return nil
	}

	ratio := float64(rate) / float64(s.SampleRate)
	outLen := int(float64(len(s.Samples)) * ratio)
	if outLen < 1 {
		return fmt.Errorf("%w: input signal length = %d is too small to resample from %d --> %d",
			ErrTooShort, len(s.Samples), s.SampleRate, rate)
	}
	outLen = min(outLen, int(math.Ceil(float64(len(s.Samples))*ratio)))

	s.Samples = resample(s.Samples, ratio, outLen)
	s.SampleRate = rate
	return nil
}

func resample(x []float64, ratio float64, outLen int) []float64 {
	base := interpolationTable()
	scale := math.Min(1.0, ratio)

	win := base
	if ratio < 1 {
		win = make([]float64, len(base))
		for i, v := range base {
			win[i] = v * ratio
		}
	}

	delta := make([]float64, len(win))
	for i := 0; i < len(win)-1; i++ {
		delta[i] = win[i+1] - win[i]
	}

	nwin := len(win)
	indexStep := int(scale * resamplePrecision)
	timeIncrement := 1.0 / ratio

	y := make([]float64, outLen)
	timeRegister := 0.0

	for t := range y {
		n := int(timeRegister)

		// left wing, walking back from x[n]
		frac := scale * (timeRegister - float64(n))
		indexFrac := frac * resamplePrecision
		offset := int(indexFrac)
		eta := indexFrac - float64(offset)

		acc := 0.0
		iMax := min(n+1, (nwin-offset)/indexStep)
		for i := range iMax {
			j := offset + i*indexStep
			acc += (win[j] + eta*delta[j]) * x[n-i]
		}

		// right wing, walking forward from x[n+1]
		frac = scale - frac
		indexFrac = frac * resamplePrecision
		offset = int(indexFrac)
		eta = indexFrac - float64(offset)

		kMax := min(len(x)-n-1, (nwin-offset)/indexStep)
		for k := range kMax {
			j := offset + k*indexStep
			acc += (win[j] + eta*delta[j]) * x[n+k+1]
		}

		y[t] = acc
		timeRegister += timeIncrement
	}

	return y
}
