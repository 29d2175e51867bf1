package chroma

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-piano/algorithms/common"
	"github.com/RyanBlaney/sonido-piano/algorithms/windowing"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ChromaConfig holds parameters for folding a CQT into pitch classes
type ChromaConfig struct {
	BaseC     bool            `json:"base_c"` // chroma 0 is C, otherwise A
	Norm      common.NormType `json:"norm"`
	Threshold float64         `json:"threshold"` // pre-normalization energy floor, 0 disables
	NChroma   int             `json:"n_chroma"`
	Window    windowing.Type  `json:"window"`
}

// DefaultChromaConfig returns 12 C-based chroma normalized by their maximum
func DefaultChromaConfig() ChromaConfig {
	return ChromaConfig{
		BaseC:     true,
		Norm:      common.NormInf,
		Threshold: 0,
		NChroma:   12,
		Window:    windowing.Rectangular,
	}
}

// FilterBank builds the nChroma x nBins matrix that merges fractional CQT
// bins into pitch classes.
//
// The identity is tiled over every octave so that each chroma collects
// binsPerOctave/nChroma adjacent bins centred on its semitone, then the rows
// are rolled so that the first CQT bin (fMin) lands on its own pitch class
// relative to C or A.
func FilterBank(nBins, binsPerOctave int, fMin float64, cfg ChromaConfig) (*mat.Dense, error) {
	if cfg.NChroma <= 0 {
		return nil, fmt.Errorf("number of chroma must be positive, got %d", cfg.NChroma)
	}
	if binsPerOctave <= 0 || binsPerOctave%cfg.NChroma != 0 {
		return nil, fmt.Errorf("incompatible constant-q merge: input bins (%d per octave) must be an integer multiple of output bins (%d)",
			binsPerOctave, cfg.NChroma)
	}
	if nBins <= 0 || fMin <= 0 {
		return nil, fmt.Errorf("invalid constant-q layout: %d bins from %g Hz", nBins, fMin)
	}

	nMerge := binsPerOctave / cfg.NChroma

	// one octave, before rolling
	octave := make([][]float64, cfg.NChroma)
	for i := range octave {
		octave[i] = make([]float64, binsPerOctave)
	}
	for j := 0; j < min(binsPerOctave, nMerge/2+nMerge%2); j++ {
		octave[0][j] = 1
	}
	for j := binsPerOctave - nMerge/2; j < binsPerOctave; j++ {
		octave[0][j] = 1
	}
	for i := 1; i < cfg.NChroma; i++ {
		for j := i*nMerge - nMerge/2; j < (i+1)*nMerge-nMerge/2; j++ {
			octave[i][j] = 1
		}
	}

	midi := int(math.Round(12*(math.Log2(fMin)-math.Log2(440)) + 69))
	offset := 0
	if !cfg.BaseC {
		offset = 3
	}
	roll := ((midi+offset)%12 + 12) % 12
	shift := int(math.Round(float64(roll) * float64(cfg.NChroma) / 12))

	var taper []float64
	if cfg.Window != windowing.Rectangular {
		taper = windowing.Coefficients(cfg.Window, nBins)
	}

	bank := mat.NewDense(cfg.NChroma, nBins, nil)
	for k := range cfg.NChroma {
		src := octave[((k-shift)%cfg.NChroma+cfg.NChroma)%cfg.NChroma]
		for j := range nBins {
			v := src[j%binsPerOctave]
			if taper != nil {
				v *= taper[j]
			}
			bank.Set(k, j, v)
		}
	}
	return bank, nil
}

// Chromagram projects a frames x bins harmonic CQT in decibels onto pitch
// classes and returns frames x nChroma.
//
// Decibels are mapped back to amplitude relative to the loudest value,
// 10^((x - max) / 20), so every input lies in (0, 1]. Frames with a zero
// norm are left at zero.
func Chromagram(harmonicDB [][]float64, binsPerOctave int, fMin float64, cfg ChromaConfig) ([][]float64, error) {
	if len(harmonicDB) == 0 {
		return [][]float64{}, nil
	}

	nFrames, nBins := len(harmonicDB), len(harmonicDB[0])
	bank, err := FilterBank(nBins, binsPerOctave, fMin, cfg)
	if err != nil {
		return nil, err
	}

	_, peak := common.MinMax2D(harmonicDB)
	amp := make([]float64, 0, nFrames*nBins)
	for i, frame := range harmonicDB {
		if len(frame) != nBins {
			return nil, fmt.Errorf("harmonic spectrum is not rectangular: frame %d has %d bins, want %d", i, len(frame), nBins)
		}
		for _, v := range frame {
			amp = append(amp, math.Pow(10, (v-peak)/20))
		}
	}

	var proj mat.Dense
	proj.Mul(mat.NewDense(nFrames, nBins, amp), bank.T())

	chroma := make([][]float64, nFrames)
	for t := range chroma {
		row := mat.Row(nil, t, &proj)
		if cfg.Threshold != 0 {
			for i, v := range row {
				if v < cfg.Threshold {
					row[i] = 0
				}
			}
		}
		common.NormalizeInPlace(row, cfg.Norm)
		chroma[t] = row
	}
	return chroma, nil
}

// Sum accumulates the chroma vectors of the onset frames, or of every frame
// when onsetsOnly is false, into one pitch profile.
func Sum(chroma [][]float64, onsets []int, onsetsOnly bool) ([]float64, error) {
	if len(chroma) == 0 {
		return nil, fmt.Errorf("did you forget to calculate the chromagram? no frames to sum")
	}

	profile := make([]float64, len(chroma[0]))
	if !onsetsOnly {
		for _, frame := range chroma {
			floats.Add(profile, frame)
		}
		return profile, nil
	}

	for _, onset := range onsets {
		if onset < 0 || onset >= len(chroma) {
			return nil, fmt.Errorf("onset frame %d outside chromagram of %d frames", onset, len(chroma))
		}
		floats.Add(profile, chroma[onset])
	}
	return profile, nil
}
