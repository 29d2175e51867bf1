package audio

import (
	"errors"
	"time"

	"gonum.org/v1/gonum/floats"
)

// ErrTooShort is returned when a resampled signal would have no samples
var ErrTooShort = errors.New("signal too short")

// Signal is a mono buffer of samples at a known rate.
// The CQT resamples and rescales it in place, so it must not be shared.
type Signal struct {
	Samples    []float64 `json:"-"`
	SampleRate int       `json:"sample_rate"`
}

// NewSignal wraps samples without copying
func NewSignal(samples []float64, sampleRate int) *Signal {
	return &Signal{Samples: samples, SampleRate: sampleRate}
}

// Len returns the number of samples
func (s *Signal) Len() int {
	return len(s.Samples)
}

// Duration returns the playback length of the signal
func (s *Signal) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(s.Samples)) / float64(s.SampleRate) * float64(time.Second))
}

// Scale multiplies every sample by k
func (s *Signal) Scale(k float64) {
	floats.Scale(k, s.Samples)
}

// Energy returns the sum of squared samples
func (s *Signal) Energy() float64 {
	return floats.Dot(s.Samples, s.Samples)
}

// Clone returns an independent copy
func (s *Signal) Clone() *Signal {
	samples := make([]float64, len(s.Samples))
	copy(samples, s.Samples)
	return &Signal{Samples: samples, SampleRate: s.SampleRate}
}
