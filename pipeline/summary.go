package pipeline

import (
	"time"

	"github.com/RyanBlaney/sonido-piano/algorithms/tonal"
)

// Summary is the compact, persisted view of a Result
type Summary struct {
	Source     string        `json:"source"`
	Format     string        `json:"format,omitempty"`
	SampleRate int           `json:"sample_rate"`
	Duration   time.Duration `json:"duration"`
	Frames     int           `json:"frames"`
	Onsets     int           `json:"onsets"`
	Key        string        `json:"key"`
	Mode       tonal.KeyMode `json:"mode"`
	Tempo      float64       `json:"tempo"`
	Notes      int           `json:"notes"`
	Scale      []string      `json:"scale,omitempty"`
	ScaleKey   string        `json:"scale_key,omitempty"`
	ChromaSum  []float64     `json:"chroma_sum,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Summary reduces the result to what the store and the CLI report
func (r *Result) Summary() Summary {
	s := Summary{
		Source:    r.Source,
		Duration:  r.Duration,
		Onsets:    len(r.Onsets),
		Tempo:     r.Tempo,
		Scale:     r.Scale,
		ScaleKey:  r.ScaleKey,
		ChromaSum: r.ChromaSum,
		Elapsed:   r.Elapsed,
	}
	if r.Media != nil {
		s.Format = r.Media.Format
	}
	if r.Spectrogram != nil {
		s.SampleRate = r.Spectrogram.SampleRate
		s.Frames = r.Spectrogram.NumFrames()
	}
	if len(r.ChromaSum) > 0 {
		s.Key = r.Key.Key
		s.Mode = r.Key.Mode
	}
	for _, notes := range r.Notes {
		s.Notes += len(notes)
	}
	return s
}

// TempoKnown reports whether a tempo could be estimated
func (s Summary) TempoKnown() bool {
	return s.Tempo > 0
}

// MIDIDuration is the span of the trimmed frames, the length of a
// transcription written from them.
func (r *Result) MIDIDuration() time.Duration {
	if r.Spectrogram == nil {
		return 0
	}
	return r.Spectrogram.Duration()
}
