package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RyanBlaney/sonido-piano/algorithms/spectral"
	"github.com/RyanBlaney/sonido-piano/logging"
	"github.com/RyanBlaney/sonido-piano/pipeline"
	"github.com/RyanBlaney/sonido-piano/store"
	"github.com/RyanBlaney/sonido-piano/transcode"
)

// Environment variables that override the built-in defaults
const (
	EnvDBPath = "SONIDO_DB_PATH"
	EnvFFmpeg = "SONIDO_FFMPEG"
)

// Config aggregates the configuration of every component
type Config struct {
	LogLevel   string                   `json:"log_level"`
	Transcribe bool                     `json:"transcribe"` // run the salience note model after analysis
	Decoder    *transcode.DecoderConfig `json:"decoder"`
	Analysis   *pipeline.Config         `json:"analysis"`
	Mel        spectral.MelConfig       `json:"mel"`
	Store      store.Config             `json:"store"`
}

// Default returns the defaults with environment overrides applied
func Default() *Config {
	decoder := transcode.DefaultDecoderConfig()
	decoder.FFmpegPath = getEnvOrDefault(EnvFFmpeg, decoder.FFmpegPath)
	if decoder.FFmpegPath != "ffmpeg" {
		// ffprobe ships next to ffmpeg
		decoder.FFprobePath = filepath.Join(filepath.Dir(decoder.FFmpegPath), "ffprobe")
	}

	mel := spectral.DefaultMelConfig()
	mel.SampleRate = decoder.TargetSampleRate

	return &Config{
		LogLevel:   "info",
		Transcribe: true,
		Decoder:    decoder,
		Analysis:   pipeline.DefaultConfig(),
		Mel:        mel,
		Store:      store.Config{Path: getEnvOrDefault(EnvDBPath, store.DefaultPath)},
	}
}

// Load reads a JSON file over the defaults, so absent keys keep their
// default values. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Decoder == nil {
		cfg.Decoder = transcode.DefaultDecoderConfig()
	}
	if cfg.Analysis == nil {
		cfg.Analysis = pipeline.DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.Debug("Loaded configuration", logging.Fields{"path": path})
	return cfg, nil
}

// Validate checks ranges across the components. It does not look for the
// ffmpeg binaries.
func (c *Config) Validate() error {
	if c.Decoder == nil || c.Analysis == nil {
		return fmt.Errorf("decoder and analysis configuration are required")
	}
	if c.Decoder.TargetSampleRate <= 0 {
		return fmt.Errorf("target sample rate must be positive: %d", c.Decoder.TargetSampleRate)
	}
	if c.Decoder.TargetChannels != 1 {
		return fmt.Errorf("analysis needs mono input, got %d target channels", c.Decoder.TargetChannels)
	}
	if c.Decoder.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %v", c.Decoder.Timeout)
	}
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if c.Mel.NumMels <= 0 || c.Mel.FFTLength <= 0 || c.Mel.HopLength <= 0 {
		return fmt.Errorf("mel: bands, fft length and hop must be positive")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}
	return nil
}

// Level returns the parsed log level
func (c *Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
