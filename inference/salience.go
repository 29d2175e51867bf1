package inference

import (
	"fmt"
	"math"
)

// SalienceModel is a model-free Predictor. It rates each key by the loudest
// of its fractional CQT bins in the centre frame, scaled by the loudest value
// of the whole block, so a key scores 1 when it carries the block's peak.
// It expects decibel features at or above zero.
type SalienceModel struct {
	BinsPerSemitone int
}

// NewSalienceModel creates a predictor for a CQT with the given resolution
func NewSalienceModel(binsPerSemitone int) *SalienceModel {
	return &SalienceModel{BinsPerSemitone: binsPerSemitone}
}

// Predict2D implements Predictor
func (m *SalienceModel) Predict2D(block [][]float64) ([]float64, error) {
	if m.BinsPerSemitone < 1 {
		return nil, fmt.Errorf("bins per semitone must be positive, got %d", m.BinsPerSemitone)
	}
	if len(block) == 0 {
		return nil, fmt.Errorf("empty block")
	}

	centre := block[len(block)/2]
	if len(centre) != NumKeys*m.BinsPerSemitone {
		return nil, fmt.Errorf("block has %d bins, want %d", len(centre), NumKeys*m.BinsPerSemitone)
	}

	peak := 0.0
	for _, frame := range block {
		for _, v := range frame {
			peak = math.Max(peak, v)
		}
	}

	probs := make([]float64, NumKeys)
	if peak <= 0 {
		return probs, nil
	}

	// fractional bins are centred on their semitone
	half := m.BinsPerSemitone / 2
	for key := range probs {
		loudest := 0.0
		for b := key*m.BinsPerSemitone - half; b < (key+1)*m.BinsPerSemitone-half; b++ {
			if b >= 0 && b < len(centre) {
				loudest = math.Max(loudest, centre[b])
			}
		}
		probs[key] = loudest / peak
	}
	return probs, nil
}
