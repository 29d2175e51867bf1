package cqt

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-piano/algorithms/common"
	"github.com/RyanBlaney/sonido-piano/algorithms/windowing"
)

var (
	// ErrBeyondNyquist is returned when the top filter's pass-band exceeds rate/2
	ErrBeyondNyquist = errors.New("filter pass-band lies beyond Nyquist")
	// ErrHopLength is returned when the hop cannot be halved once per octave
	ErrHopLength = errors.New("hop length must be a positive integer, long enough, multiple of 2^N")
	// ErrSignalTooShort is returned when a downsampling step would leave no samples
	ErrSignalTooShort = errors.New("input audio signal is too short for constant-q spectrum")
)

// Config holds parameters for the constant-Q transform
type Config struct {
	NumBins       int             `json:"num_bins"`
	BinsPerOctave int             `json:"bins_per_octave"`
	FMin          float64         `json:"fmin"`
	HopLength     int             `json:"hop_length"`
	FilterScale   float64         `json:"filter_scale"`
	Norm          common.NormType `json:"norm"`
	Sparsity      float64         `json:"sparsity"`
	Window        windowing.Type  `json:"window"`
	Scale         bool            `json:"scale"`
	PadMode       common.PadMode  `json:"pad_mode"`
}

// DefaultConfig returns an 88-key piano CQT, one bin per semitone from A0
func DefaultConfig() Config {
	return Config{
		NumBins:       88,
		BinsPerOctave: 12,
		FMin:          27.5,
		HopLength:     512,
		FilterScale:   1,
		Norm:          common.NormL1,
		Sparsity:      0.01,
		Window:        windowing.Hann,
		Scale:         true,
		PadMode:       common.PadMirror,
	}
}

// Validate checks the parameters that do not depend on the input signal
func (c Config) Validate() error {
	if c.NumBins <= 0 {
		return fmt.Errorf("number of bins must be positive, got %d", c.NumBins)
	}
	if c.BinsPerOctave <= 0 {
		return fmt.Errorf("bins per octave must be positive, got %d", c.BinsPerOctave)
	}
	if c.FMin <= 0 {
		return fmt.Errorf("minimum frequency must be positive, got %g", c.FMin)
	}
	if c.HopLength <= 0 {
		return fmt.Errorf("%w: got %d", ErrHopLength, c.HopLength)
	}
	if c.FilterScale <= 0 {
		return fmt.Errorf("filter scale must be positive, got %g", c.FilterScale)
	}
	if c.Sparsity < 0 || c.Sparsity >= 1 {
		return fmt.Errorf("sparsity must be in [0, 1), got %g", c.Sparsity)
	}
	return nil
}
