package cqt

import (
	"time"

	"github.com/RyanBlaney/sonido-piano/algorithms/common"
	"github.com/RyanBlaney/sonido-piano/algorithms/spectral"
)

// Spectrogram is the assembled CQT, frames x bins in ascending frequency
type Spectrogram struct {
	Data          [][]float64 `json:"data"`
	NumBins       int         `json:"num_bins"`
	BinsPerOctave int         `json:"bins_per_octave"`
	FMin          float64     `json:"fmin"`
	HopLength     int         `json:"hop_length"`  // in samples at SampleRate
	SampleRate    int         `json:"sample_rate"` // rate of the input signal
	FFTLength     int         `json:"fft_length"`  // STFT frame length of the top octave
}

// NumFrames returns the number of time frames
func (s *Spectrogram) NumFrames() int {
	return len(s.Data)
}

// Frequencies returns the centre frequency of every bin
func (s *Spectrogram) Frequencies() []float64 {
	return centerFrequencies(s.FMin, s.NumBins, s.BinsPerOctave)
}

// Duration is the time covered by the frames
func (s *Spectrogram) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	seconds := float64(len(s.Data)*s.HopLength) / float64(s.SampleRate)
	return time.Duration(seconds * float64(time.Second))
}

// Amplitude2Power squares every value in place
func (s *Spectrogram) Amplitude2Power() {
	s.Data = spectral.Amplitude2Power(s.Data)
}

// TrimSilence drops leading and trailing frames whose mean power is topDB
// below the loudest frame. It returns the kept range of the original frames.
func (s *Spectrogram) TrimSilence(aMin, topDB float64) (start, end int, err error) {
	start, end, err = spectral.TrimSilence(s.Data, aMin, topDB)
	if err != nil {
		return 0, 0, err
	}
	s.Data = s.Data[start:end]
	return start, end, nil
}

// Power2DB converts the power spectrogram to decibels in place
func (s *Spectrogram) Power2DB(ref, aMin, topDB float64) error {
	db, err := spectral.Power2DB(s.Data, ref, aMin, topDB)
	if err != nil {
		return err
	}
	s.Data = db
	return nil
}

// MinValue returns the smallest value, 0 for an empty spectrogram
func (s *Spectrogram) MinValue() float64 {
	lo, _ := common.MinMax2D(s.Data)
	return lo
}
