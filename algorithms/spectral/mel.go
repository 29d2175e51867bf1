package spectral

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-piano/algorithms/common"
	"github.com/RyanBlaney/sonido-piano/algorithms/windowing"
	"github.com/RyanBlaney/sonido-piano/logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MelConfig holds parameters for the mel spectrogram
type MelConfig struct {
	SampleRate int            `json:"sample_rate"`
	NumMels    int            `json:"num_mels"`
	FMin       float64        `json:"fmin"`
	FMax       float64        `json:"fmax"` // 0 selects SampleRate/2
	HTK        bool           `json:"htk"`
	Normalize  bool           `json:"normalize"` // Slaney area normalization
	FFTLength  int            `json:"fft_length"`
	HopLength  int            `json:"hop_length"`
	Window     windowing.Type `json:"window"`
	PadMode    common.PadMode `json:"pad_mode"`
	Power      float64        `json:"power"`
}

// DefaultMelConfig returns the configuration used by the mel model variant
func DefaultMelConfig() MelConfig {
	return MelConfig{
		SampleRate: 22050,
		NumMels:    128,
		FMin:       0,
		FMax:       0,
		HTK:        false,
		Normalize:  true,
		FFTLength:  2048,
		HopLength:  512,
		Window:     windowing.Hann,
		PadMode:    common.PadMirror,
		Power:      2,
	}
}

const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27.0

// HzToMel converts frequency in Hz to mel (Slaney scale unless htk)
func HzToMel(hz float64, htk bool) float64 {
	if htk {
		return 2595.0 * math.Log10(1.0+hz/700.0)
	}

	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

// MelToHz converts mel back to Hz
func MelToHz(mel float64, htk bool) float64 {
	if htk {
		return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
	}

	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return melFSp * mel
}

// MelFrequencies returns n frequencies evenly spaced on the mel scale
func MelFrequencies(n int, fMin, fMax float64, htk bool) []float64 {
	lo, hi := HzToMel(fMin, htk), HzToMel(fMax, htk)

	mels := make([]float64, n)
	if n == 1 {
		mels[0] = lo
	} else if n > 1 {
		floats.Span(mels, lo, hi)
	}
	for i, m := range mels {
		mels[i] = MelToHz(m, htk)
	}
	return mels
}

// MelTransform projects STFT power through a triangular mel filter bank
type MelTransform struct {
	config  MelConfig
	stft    *STFT
	weights *mat.Dense // NumMels x (1 + FFTLength/2)
	melFreq []float64  // NumMels + 2 band edges in Hz
	logger  logging.Logger
}

// NewMelTransform builds the filter bank and the STFT used by Compute
func NewMelTransform(cfg MelConfig) (*MelTransform, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.NumMels <= 0 {
		return nil, fmt.Errorf("number of mel bands must be positive, got %d", cfg.NumMels)
	}
	if cfg.FMax <= 0 {
		cfg.FMax = float64(cfg.SampleRate) / 2
	}
	if cfg.Power <= 0 {
		cfg.Power = 2
	}

	stft, err := NewSTFT(STFTConfig{FrameLength: cfg.FFTLength, Window: cfg.Window, PadMode: cfg.PadMode})
	if err != nil {
		return nil, err
	}

	m := &MelTransform{
		config: cfg,
		stft:   stft,
		logger: logging.WithFields(logging.Fields{"component": "mel"}),
	}
	m.buildWeights()

	return m, nil
}

func (m *MelTransform) buildWeights() {
	cfg := m.config
	nBins := cfg.FFTLength/2 + 1

	fftFreqs := make([]float64, nBins)
	floats.Span(fftFreqs, 0, float64(cfg.SampleRate)/2)

	m.melFreq = MelFrequencies(cfg.NumMels+2, cfg.FMin, cfg.FMax, cfg.HTK)
	fdiff := make([]float64, len(m.melFreq)-1)
	for i := range fdiff {
		fdiff[i] = m.melFreq[i+1] - m.melFreq[i]
	}

	m.weights = mat.NewDense(cfg.NumMels, nBins, nil)
	empty := false

	for i := range cfg.NumMels {
		enorm := 1.0
		if cfg.Normalize {
			enorm = 2.0 / (m.melFreq[i+2] - m.melFreq[i])
		}

		peak := 0.0
		for k, f := range fftFreqs {
			lower := -(m.melFreq[i] - f) / fdiff[i]
			upper := (m.melFreq[i+2] - f) / fdiff[i+1]
			w := math.Max(0, math.Min(lower, upper))
			peak = math.Max(peak, w)
			m.weights.Set(i, k, w*enorm)
		}

		if m.melFreq[i] != 0 && peak == 0 {
			empty = true
		}
	}

	if empty {
		m.logger.Warn("empty filters detected in mel frequency basis", logging.Fields{
			"num_mels":   cfg.NumMels,
			"fft_length": cfg.FFTLength,
		})
	}
}

// Weights returns a copy of the filter bank (NumMels x FFT bins)
func (m *MelTransform) Weights() [][]float64 {
	rows, _ := m.weights.Dims()
	out := make([][]float64, rows)
	for i := range rows {
		out[i] = mat.Row(nil, i, m.weights)
	}
	return out
}

// Compute returns the mel spectrogram of signal as frames x NumMels
func (m *MelTransform) Compute(signal []float64) ([][]float64, error) {
	spec, err := m.stft.Forward(signal, m.config.HopLength)
	if err != nil {
		return nil, fmt.Errorf("mel stft: %w", err)
	}
	if spec.NumFrames == 0 {
		return [][]float64{}, nil
	}

	power := spec.Magnitude(m.config.Power)
	flat := make([]float64, 0, spec.NumFrames*spec.NumBins)
	for _, row := range power {
		flat = append(flat, row...)
	}

	p := mat.NewDense(spec.NumFrames, spec.NumBins, flat)
	var out mat.Dense
	out.Mul(p, m.weights.T())

	result := make([][]float64, spec.NumFrames)
	for t := range result {
		result[t] = mat.Row(nil, t, &out)
	}
	return result, nil
}

// NoteIndices returns, for the 88 piano keys (MIDI 21..108), the index of the
// mel band whose centre is nearest to the note frequency.
func (m *MelTransform) NoteIndices() []int {
	centres := m.melFreq[1 : len(m.melFreq)-1]

	indices := make([]int, 88)
	for n := range indices {
		freq := 440.0 * math.Pow(2, float64(n+21-69)/12)

		best, bestDist := 0, math.Inf(1)
		for i, c := range centres {
			if d := math.Abs(c - freq); d < bestDist {
				best, bestDist = i, d
			}
		}
		indices[n] = best
	}
	return indices
}

// OctaveIndices returns the mel band of every A (aNotC) or C in the piano range
func (m *MelTransform) OctaveIndices(aNotC bool) []int {
	notes := m.NoteIndices()
	offset := 3
	if aNotC {
		offset = 0
	}

	var out []int
	for i := offset; i < len(notes); i += 12 {
		out = append(out, notes[i])
	}
	return out
}
