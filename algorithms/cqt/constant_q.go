package cqt

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-piano/algorithms/common"
	"github.com/RyanBlaney/sonido-piano/algorithms/spectral"
	"github.com/RyanBlaney/sonido-piano/algorithms/windowing"
	"github.com/RyanBlaney/sonido-piano/audio"
	"github.com/RyanBlaney/sonido-piano/logging"
)

// fastestBandwidth is the usable fraction of Nyquist of the fast resampler
const fastestBandwidth = 0.85

// octaveState is carried from one octave to the next
type octaveState struct {
	rate       int
	hop        int
	fMinOctave float64
	fMaxOctave float64
	nOctaves   int
}

// transform holds one run of the recursive sub-sampling CQT
type transform struct {
	cfg       Config
	bank      *FilterBank
	state     octaveState
	rows      [][]float64 // bins x frames, finest first
	fftLength int
	logger    logging.Logger
}

// Compute runs the recursive sub-sampling constant-Q transform
// (Schoerkhuber and Klapuri, 2010) over a mono signal.
//
// The signal is consumed: it is resampled and rescaled in place as the
// octaves are walked from the top down.
func Compute(signal *audio.Signal, cfg Config) (*Spectrogram, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if signal == nil || signal.Len() == 0 {
		return nil, fmt.Errorf("%w: empty signal", ErrSignalTooShort)
	}

	t := &transform{
		cfg:    cfg,
		bank:   NewFilterBank(cfg.BinsPerOctave, cfg.FilterScale, cfg.Norm, cfg.Window),
		logger: logging.WithFields(logging.Fields{"component": "cqt"}),
	}

	inputRate := signal.SampleRate
	freqs, err := t.bank.Frequencies(inputRate, cfg.FMin, cfg.NumBins)
	if err != nil {
		return nil, err
	}

	t.state = octaveState{
		rate:       inputRate,
		hop:        cfg.HopLength,
		fMinOctave: freqs[max(0, len(freqs)-cfg.BinsPerOctave)],
		fMaxOctave: freqs[len(freqs)-1],
		nOctaves:   int(math.Ceil(float64(cfg.NumBins) / float64(cfg.BinsPerOctave))),
	}

	fast := t.cutoff() < fastestBandwidth*float64(inputRate)/2
	if fast {
		if err := t.earlyDownsample(signal); err != nil {
			return nil, err
		}
	}

	nFilters := min(cfg.BinsPerOctave, cfg.NumBins)

	if !fast {
		// top octave at full rate before any resampling
		if err := t.bank.Build(signal.SampleRate, t.state.fMinOctave, nFilters, cfg.Sparsity, 0); err != nil {
			return nil, err
		}
		if err := t.response(signal); err != nil {
			return nil, err
		}

		t.state.fMinOctave /= 2
		t.state.fMaxOctave /= 2
		t.state.nOctaves--
	}

	if common.Num2Factors(t.state.hop) < t.state.nOctaves-1 {
		n := t.state.nOctaves
		return nil, fmt.Errorf("%w: multiple of 2^%d = %d to support the bottom octave of %d-octave CQT",
			ErrHopLength, n, 1<<uint(max(n, 0)), n)
	}

	if err := t.bank.Build(signal.SampleRate, t.state.fMinOctave, nFilters, cfg.Sparsity, 0); err != nil {
		return nil, err
	}

	rateInitial := signal.SampleRate
	for i := range t.state.nOctaves {
		if i > 0 {
			if err := t.halfDownsample(signal); err != nil {
				return nil, err
			}
		}
		if err := t.response(signal); err != nil {
			return nil, err
		}
	}

	if len(t.rows) != cfg.NumBins {
		return nil, fmt.Errorf("constant-q assembled %d bins, expected %d", len(t.rows), cfg.NumBins)
	}

	t.trimErrors()
	if cfg.Scale {
		t.scale(rateInitial)
	}

	return &Spectrogram{
		Data:          common.Transpose(t.rows),
		NumBins:       cfg.NumBins,
		BinsPerOctave: cfg.BinsPerOctave,
		FMin:          cfg.FMin,
		HopLength:     cfg.HopLength,
		SampleRate:    inputRate,
		FFTLength:     t.fftLength,
	}, nil
}

// cutoff is the highest frequency the current top octave needs
func (t *transform) cutoff() float64 {
	return t.state.fMaxOctave * (1 + 0.5*WindowBandwidth(t.cfg.Window)/t.bank.Q())
}

// earlyDownsample drops to the lowest rate the top octave and the hop allow
func (t *transform) earlyDownsample(signal *audio.Signal) error {
	nyquist := float64(signal.SampleRate) / 2
	byBandwidth := max(0, int(math.Ceil(math.Log2(fastestBandwidth*nyquist/t.cutoff())))-1-1)
	byHop := max(0, common.Num2Factors(t.state.hop)-t.state.nOctaves+1)

	nOps := min(byBandwidth, byHop)
	if nOps == 0 {
		return nil
	}

	factor := 1 << uint(nOps)
	t.state.hop /= factor
	if signal.Len() < factor {
		return fmt.Errorf("%w: input audio signal length = %d is too short for %d-octave constant-q spectrum",
			ErrSignalTooShort, signal.Len(), t.state.nOctaves)
	}

	if err := signal.MonoResample(signal.SampleRate / factor); err != nil {
		return fmt.Errorf("early downsample: %w", err)
	}
	t.state.rate = signal.SampleRate

	t.logger.Debug("early downsample", logging.Fields{
		"factor": factor,
		"rate":   signal.SampleRate,
		"hop":    t.state.hop,
	})
	return nil
}

// halfDownsample moves one octave down: half the rate, half the hop,
// and sqrt(2) on both signal and filters to keep the energy.
func (t *transform) halfDownsample(signal *audio.Signal) error {
	if signal.Len() < 2 {
		return fmt.Errorf("%w: input audio signal length = %d is too short for %d-octave constant-q spectrum",
			ErrSignalTooShort, signal.Len(), t.state.nOctaves)
	}

	if err := signal.MonoResample(signal.SampleRate / 2); err != nil {
		return fmt.Errorf("octave downsample: %w", err)
	}
	signal.Scale(math.Sqrt2)
	t.bank.Scale(math.Sqrt2)

	t.state.rate = signal.SampleRate
	t.state.hop /= 2
	return nil
}

// response appends the magnitudes of the current octave, highest bin first,
// stopping once NumBins rows exist.
func (t *transform) response(signal *audio.Signal) error {
	stft, err := spectral.NewSTFT(spectral.STFTConfig{
		FrameLength: t.bank.FFTLength(),
		Window:      windowing.Rectangular,
		PadMode:     t.cfg.PadMode,
	})
	if err != nil {
		return err
	}

	spec, err := stft.Forward(signal.Samples, t.state.hop)
	if err != nil {
		return err
	}

	resp, err := t.bank.Project(spec)
	if err != nil {
		return err
	}

	if t.fftLength == 0 {
		t.fftLength = t.bank.FFTLength()
	}

	t.logger.Debug("octave response", logging.Fields{
		"rate":   t.state.rate,
		"hop":    t.state.hop,
		"frames": spec.NumFrames,
		"sparse": t.bank.Sparse(),
	})

	for i := len(resp) - 1; i >= 0; i-- {
		row := make([]float64, len(resp[i]))
		for j, v := range resp[i] {
			row[j] = math.Hypot(real(v), imag(v))
		}
		t.rows = append(t.rows, row)

		if len(t.rows) == t.cfg.NumBins {
			break
		}
	}
	return nil
}

// trimErrors cuts every bin to the shortest octave and puts the bins in
// ascending frequency order.
func (t *transform) trimErrors() {
	minFrames := math.MaxInt
	for _, row := range t.rows {
		minFrames = min(minFrames, len(row))
	}
	for i := range t.rows {
		t.rows[i] = t.rows[i][:minFrames]
	}

	for i, j := 0, len(t.rows)-1; i < j; i, j = i+1, j-1 {
		t.rows[i], t.rows[j] = t.rows[j], t.rows[i]
	}
}

// scale divides every bin by sqrt of its filter length at rateInitial
func (t *transform) scale(rateInitial int) {
	freqs := centerFrequencies(t.cfg.FMin, t.cfg.NumBins, t.cfg.BinsPerOctave)
	lengths := filterLengths(t.bank.Q(), rateInitial, freqs)

	for i, row := range t.rows {
		k := 1 / math.Sqrt(lengths[i])
		for j := range row {
			row[j] *= k
		}
	}
}
