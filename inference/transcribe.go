package inference

import (
	"context"
	"fmt"
	"slices"

	"github.com/RyanBlaney/sonido-piano/algorithms/tonal"
	"github.com/RyanBlaney/sonido-piano/logging"
)

// NumKeys is the number of piano keys a predictor scores
const NumKeys = 88

// Predictor scores one [frames][bins] block and returns one probability per
// piano key for its centre frame.
type Predictor interface {
	Predict2D(block [][]float64) ([]float64, error)
}

// ProgressFunc is called after every block with the number of blocks done
type ProgressFunc func(done, total int)

// Config holds parameters for note transcription
type Config struct {
	WindowFrames int     `json:"window_frames"`
	Threshold    float64 `json:"threshold"` // keys above it become notes
}

// DefaultConfig returns 7-frame blocks and a 0.5 probability threshold
func DefaultConfig() Config {
	return Config{
		WindowFrames: 7,
		Threshold:    0.5,
	}
}

// Validate checks the block size and threshold
func (c Config) Validate() error {
	if c.WindowFrames < 1 {
		return fmt.Errorf("window must hold at least one frame, got %d", c.WindowFrames)
	}
	if c.Threshold < 0 || c.Threshold >= 1 {
		return fmt.Errorf("note threshold must be in [0, 1), got %g", c.Threshold)
	}
	return nil
}

// Transcribe runs the predictor over every block and pools the frame
// probabilities around each onset: an onset owns the frames from the midpoint
// with its predecessor up to the midpoint with its successor, and a key
// sounds at the onset when its maximum probability there exceeds threshold.
//
// The context is checked between blocks. progress may be nil.
func Transcribe(ctx context.Context, w *Windower, predictor Predictor, onsets []int, threshold float64, progress ProgressFunc) ([][]tonal.Note, error) {
	if w == nil || predictor == nil {
		return nil, fmt.Errorf("transcription needs a windower and a predictor")
	}
	if !slices.IsSorted(onsets) {
		return nil, fmt.Errorf("onset frames must be increasing")
	}
	if len(onsets) > 0 && onsets[len(onsets)-1] >= w.Len() {
		return nil, fmt.Errorf("input and output durations do not match: onset %d beyond %d frames",
			onsets[len(onsets)-1], w.Len())
	}

	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "inference",
		"function":  "Transcribe",
	})

	probs := make([][]float64, w.Len())
	for i := range probs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		block, err := w.Window(i)
		if err != nil {
			return nil, err
		}
		p, err := predictor.Predict2D(block)
		if err != nil {
			return nil, fmt.Errorf("predict block %d: %w", i, err)
		}
		if i > 0 && len(p) != len(probs[0]) {
			return nil, fmt.Errorf("predictor returned %d probabilities for block %d, want %d", len(p), i, len(probs[0]))
		}
		probs[i] = p

		if progress != nil {
			progress(i+1, len(probs))
		}
	}

	notes := poolOnsets(probs, onsets, threshold)

	count := 0
	for _, n := range notes {
		count += len(n)
	}
	logger.Debug("transcribed", logging.Fields{
		"blocks": len(probs),
		"onsets": len(onsets),
		"notes":  count,
	})
	return notes, nil
}

// poolOnsets keeps, per onset, the keys whose peak probability in the
// onset's span exceeds threshold.
func poolOnsets(probs [][]float64, onsets []int, threshold float64) [][]tonal.Note {
	notes := make([][]tonal.Note, len(onsets))
	if len(probs) == 0 {
		return notes
	}

	for j := range onsets {
		start, end := 0, len(probs)
		if j > 0 {
			start = (onsets[j-1] + onsets[j]) / 2
		}
		if j < len(onsets)-1 {
			end = (onsets[j] + onsets[j+1]) / 2
		}
		if start >= end {
			continue
		}

		notes[j] = []tonal.Note{}
		for key := range probs[0] {
			peak := probs[start][key]
			for t := start + 1; t < end; t++ {
				peak = max(peak, probs[t][key])
			}
			if peak > threshold {
				notes[j] = append(notes[j], tonal.Note{Pitch: key, Velocity: peak})
			}
		}
	}
	return notes
}
