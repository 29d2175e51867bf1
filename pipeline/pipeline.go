package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-piano/algorithms/chroma"
	"github.com/RyanBlaney/sonido-piano/algorithms/cqt"
	"github.com/RyanBlaney/sonido-piano/algorithms/harmonic"
	"github.com/RyanBlaney/sonido-piano/algorithms/spectral"
	"github.com/RyanBlaney/sonido-piano/algorithms/temporal"
	"github.com/RyanBlaney/sonido-piano/algorithms/tonal"
	"github.com/RyanBlaney/sonido-piano/audio"
	"github.com/RyanBlaney/sonido-piano/inference"
	"github.com/RyanBlaney/sonido-piano/logging"
	"github.com/RyanBlaney/sonido-piano/transcode"
)

// semitones per octave; the CQT resolution is a multiple of it
const semitones = 12

// Config holds configuration for a full analysis run
type Config struct {
	CQT          cqt.Config           `json:"cqt"`
	SilenceAMin  float64              `json:"silence_amin"`
	SilenceTopDB float64              `json:"silence_top_db"`
	DBAMin       float64              `json:"db_amin"`
	DBTopDB      float64              `json:"db_top_db"`
	HPSS         harmonic.HPSSConfig  `json:"hpss"`
	Onset        temporal.OnsetConfig `json:"onset"`
	Backtrack    bool                 `json:"backtrack"`
	Chroma       chroma.ChromaConfig  `json:"chroma"`
	OnsetsOnly   bool                 `json:"onsets_only"` // chroma sum over onset frames only
	Tempo        temporal.TempoConfig `json:"tempo"`
	Inference    inference.Config     `json:"inference"`
	ScaleSize    int                  `json:"scale_size"` // pitch classes kept from detected notes
}

// DefaultConfig returns the piano analysis defaults: four bins per semitone
// over the 88 keys, chroma based on A.
func DefaultConfig() *Config {
	cqtConfig := cqt.DefaultConfig()
	cqtConfig.NumBins = inference.NumKeys * 4
	cqtConfig.BinsPerOctave = semitones * 4

	chromaConfig := chroma.DefaultChromaConfig()
	chromaConfig.BaseC = false

	return &Config{
		CQT:          cqtConfig,
		SilenceAMin:  spectral.DefaultPowerAMin,
		SilenceTopDB: spectral.DefaultSilenceTopDB,
		DBAMin:       spectral.DefaultPowerAMin,
		DBTopDB:      spectral.DefaultTopDB,
		HPSS:         harmonic.DefaultHPSSConfig(),
		Onset:        temporal.DefaultOnsetConfig(),
		Backtrack:    false,
		Chroma:       chromaConfig,
		OnsetsOnly:   true,
		Tempo:        temporal.DefaultTempoConfig(),
		Inference:    inference.DefaultConfig(),
		ScaleSize:    7,
	}
}

// Validate checks every stage configuration
func (c *Config) Validate() error {
	if err := c.CQT.Validate(); err != nil {
		return fmt.Errorf("cqt: %w", err)
	}
	if c.SilenceAMin <= 0 || c.DBAMin <= 0 {
		return fmt.Errorf("amin must be strictly positive, got %g and %g", c.SilenceAMin, c.DBAMin)
	}
	if c.SilenceTopDB < 0 || c.DBTopDB < 0 {
		return fmt.Errorf("top dB must be non-negative, got %g and %g", c.SilenceTopDB, c.DBTopDB)
	}
	if err := c.HPSS.Validate(); err != nil {
		return fmt.Errorf("hpss: %w", err)
	}
	if err := c.Onset.Validate(); err != nil {
		return fmt.Errorf("onset: %w", err)
	}
	if err := c.Tempo.Validate(); err != nil {
		return fmt.Errorf("tempo: %w", err)
	}
	if err := c.Inference.Validate(); err != nil {
		return fmt.Errorf("inference: %w", err)
	}
	if c.Chroma.NChroma <= 0 {
		return fmt.Errorf("chroma: number of chroma bins must be positive, got %d", c.Chroma.NChroma)
	}
	if c.ScaleSize < 1 || c.ScaleSize > semitones {
		return fmt.Errorf("scale size must be in [1, %d], got %d", semitones, c.ScaleSize)
	}
	return nil
}

// Result holds every intermediate product of one analysis
type Result struct {
	Source      string               `json:"source,omitempty"`
	Media       *transcode.MediaInfo `json:"media,omitempty"`
	Duration    time.Duration        `json:"duration"` // of the input signal
	Spectrogram *cqt.Spectrogram     `json:"spectrogram"`
	TrimStart   int                  `json:"trim_start"`
	TrimEnd     int                  `json:"trim_end"`
	Harmonic    [][]float64          `json:"harmonic"`
	Envelope    []float64            `json:"envelope"`
	Onsets      []int                `json:"onsets"`
	Chroma      [][]float64          `json:"chroma"`
	ChromaSum   []float64            `json:"chroma_sum"`
	Key         tonal.KeyEstimate    `json:"key"`
	Tempo       float64              `json:"tempo"` // 0 when unknown
	Notes       [][]tonal.Note       `json:"notes,omitempty"`
	Scale       []string             `json:"scale,omitempty"`
	ScaleKey    string               `json:"scale_key,omitempty"`
	Elapsed     time.Duration        `json:"elapsed"`
}

// Analyzer runs the constant-Q piano analysis from samples to key and tempo
type Analyzer struct {
	config    *Config
	predictor inference.Predictor
	progress  inference.ProgressFunc
	logger    logging.Logger
}

// NewAnalyzer creates an analyzer. A nil config selects the defaults and a
// nil predictor skips note transcription.
func NewAnalyzer(config *Config, predictor inference.Predictor) *Analyzer {
	if config == nil {
		config = DefaultConfig()
	}

	return &Analyzer{
		config:    config,
		predictor: predictor,
		logger: logging.WithFields(logging.Fields{
			"component": "analyzer",
		}),
	}
}

// Config returns a copy of the analyzer configuration
func (a *Analyzer) Config() Config {
	return *a.config
}

// SetProgress installs a callback for the transcription stage
func (a *Analyzer) SetProgress(fn inference.ProgressFunc) {
	a.progress = fn
}

// AnalyzeFile loads path through transcode.Load and analyzes it
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string, decoder *transcode.Decoder) (*Result, error) {
	signal, info, err := transcode.Load(ctx, path, decoder)
	if err != nil {
		a.logger.Error(err, "Failed to load audio", logging.Fields{"path": path})
		return nil, err
	}

	result, err := a.Analyze(ctx, signal)
	if err != nil {
		return nil, err
	}
	result.Source = path
	result.Media = info
	return result, nil
}

// Analyze runs every stage in order: CQT, power, silence trim, decibels,
// HPSS, onset envelope and peaks, chroma, key, tempo and, with a predictor,
// per-onset notes and the key implied by their scale. The signal is
// resampled in place by the CQT; clone it first to keep the samples.
func (a *Analyzer) Analyze(ctx context.Context, signal *audio.Signal) (*Result, error) {
	if signal == nil {
		return nil, fmt.Errorf("signal cannot be nil")
	}
	if err := a.config.Validate(); err != nil {
		a.logger.Error(err, "Invalid analysis configuration")
		return nil, err
	}

	start := time.Now()
	logger := a.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":    "Analyze",
		"sample_rate": signal.SampleRate,
		"samples":     signal.Len(),
	})
	logger.Debug("Starting analysis")

	result := &Result{Duration: signal.Duration()}

	spec, trimStart, trimEnd, err := a.spectrogram(ctx, signal, logger)
	if err != nil {
		return nil, err
	}
	result.Spectrogram = spec
	result.TrimStart, result.TrimEnd = trimStart, trimEnd

	if spec.NumFrames() == 0 {
		logger.Warn("Audio is silent after trimming")
		result.Elapsed = time.Since(start)
		return result, nil
	}

	separation, err := harmonic.Separate(spec.Data, a.config.HPSS)
	if err != nil {
		logger.Error(err, "Failed to separate harmonic and percussive parts")
		return nil, err
	}
	result.Harmonic = separation.Harmonic
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Envelope, err = temporal.OnsetEnvelope(separation.Percussive, a.config.Onset, spec.FFTLength, spec.HopLength)
	if err != nil {
		logger.Error(err, "Failed to compute onset envelope")
		return nil, err
	}
	result.Onsets, err = temporal.OnsetPeaks(result.Envelope, spec.SampleRate, spec.HopLength, a.config.Backtrack)
	if err != nil {
		logger.Error(err, "Failed to detect onsets")
		return nil, err
	}
	logger.Debug("Onsets detected", logging.Fields{"onsets": len(result.Onsets)})

	result.Chroma, err = chroma.Chromagram(separation.Harmonic, spec.BinsPerOctave, spec.FMin, a.config.Chroma)
	if err != nil {
		logger.Error(err, "Failed to compute chromagram")
		return nil, err
	}

	onsetsOnly := a.config.OnsetsOnly
	if onsetsOnly && len(result.Onsets) == 0 {
		logger.Debug("No onsets, summing chroma over every frame")
		onsetsOnly = false
	}
	result.ChromaSum, err = chroma.Sum(result.Chroma, result.Onsets, onsetsOnly)
	if err != nil {
		logger.Error(err, "Failed to sum chroma")
		return nil, err
	}

	result.Key, err = tonal.EstimateKey(result.ChromaSum, a.config.Chroma.BaseC)
	if err != nil {
		logger.Error(err, "Failed to estimate key")
		return nil, err
	}

	result.Tempo, err = temporal.MostProbableTempo(result.Envelope, spec.SampleRate, spec.HopLength, a.config.Tempo)
	if err != nil {
		logger.Error(err, "Failed to estimate tempo")
		return nil, err
	}
	logger.Debug("Key and tempo estimated", logging.Fields{
		"key":   result.Key.Key,
		"tempo": result.Tempo,
	})

	if a.predictor != nil {
		if err := a.transcribe(ctx, result, logger); err != nil {
			return nil, err
		}
	}

	result.Elapsed = time.Since(start)
	logger.Debug("Analysis complete", logging.Fields{"elapsed": result.Elapsed})
	return result, nil
}

// Spectrogram computes the trimmed decibel CQT that the later stages
// consume, together with the kept frame range [start, end).
func (a *Analyzer) Spectrogram(ctx context.Context, signal *audio.Signal) (spec *cqt.Spectrogram, start, end int, err error) {
	if signal == nil {
		return nil, 0, 0, fmt.Errorf("signal cannot be nil")
	}
	if err := a.config.CQT.Validate(); err != nil {
		return nil, 0, 0, fmt.Errorf("cqt: %w", err)
	}
	logger := a.logger.WithContext(ctx).WithFields(logging.Fields{"function": "Spectrogram"})
	return a.spectrogram(ctx, signal, logger)
}

func (a *Analyzer) spectrogram(ctx context.Context, signal *audio.Signal, logger logging.Logger) (*cqt.Spectrogram, int, int, error) {
	spec, err := cqt.Compute(signal, a.config.CQT)
	if err != nil {
		logger.Error(err, "Failed to compute constant-q spectrum")
		return nil, 0, 0, err
	}
	logger.Debug("Constant-q spectrum computed", logging.Fields{
		"frames": spec.NumFrames(),
		"bins":   spec.NumBins,
	})
	if err := ctx.Err(); err != nil {
		return nil, 0, 0, err
	}

	spec.Amplitude2Power()
	start, end, err := spec.TrimSilence(a.config.SilenceAMin, a.config.SilenceTopDB)
	if err != nil {
		logger.Error(err, "Failed to trim silence")
		return nil, 0, 0, err
	}
	if spec.NumFrames() == 0 {
		return spec, start, end, nil
	}
	logger.Debug("Silence trimmed", logging.Fields{
		"start": start,
		"end":   end,
	})

	if err := spec.Power2DB(spec.MinValue(), a.config.DBAMin, a.config.DBTopDB); err != nil {
		logger.Error(err, "Failed to convert to decibels")
		return nil, 0, 0, err
	}
	return spec, start, end, nil
}

func (a *Analyzer) transcribe(ctx context.Context, result *Result, logger logging.Logger) error {
	windower, err := inference.NewWindower(result.Harmonic, a.config.Inference.WindowFrames)
	if err != nil {
		logger.Error(err, "Failed to window harmonic features")
		return err
	}

	result.Notes, err = inference.Transcribe(ctx, windower, a.predictor, result.Onsets,
		a.config.Inference.Threshold, a.progress)
	if err != nil {
		logger.Error(err, "Failed to transcribe notes")
		return err
	}

	result.Scale = tonal.ScaleFromNotes(result.Notes, a.config.ScaleSize)
	result.ScaleKey = tonal.KeyFromScale(result.Scale)
	logger.Debug("Notes transcribed", logging.Fields{
		"scale":     result.Scale,
		"scale_key": result.ScaleKey,
	})
	return nil
}
