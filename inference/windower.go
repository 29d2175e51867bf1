package inference

import "fmt"

// Windower serves fixed-size blocks of a frames x bins feature matrix, one
// centred on every frame. The matrix is zero-padded by nFrames/2 frames on
// both sides.
type Windower struct {
	padded  [][]float64
	nFrames int
	nBins   int
	frames  int
}

// NewWindower pads the features for blocks of nFrames frames
func NewWindower(features [][]float64, nFrames int) (*Windower, error) {
	if nFrames < 1 {
		return nil, fmt.Errorf("window must hold at least one frame, got %d", nFrames)
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("no feature frames to window")
	}

	nBins := len(features[0])
	half := nFrames / 2

	padded := make([][]float64, len(features)+2*half)
	for i := range padded {
		src := i - half
		if src < 0 || src >= len(features) {
			padded[i] = make([]float64, nBins)
			continue
		}
		if len(features[src]) != nBins {
			return nil, fmt.Errorf("harmonic spectrum is not rectangular: frame %d has %d bins, want %d",
				src, len(features[src]), nBins)
		}
		padded[i] = features[src]
	}

	if len(padded) < nFrames {
		return nil, fmt.Errorf("padded spectrum must contain at least %d time frames, got %d", nFrames, len(padded))
	}

	return &Windower{
		padded:  padded,
		nFrames: nFrames,
		nBins:   nBins,
		frames:  len(padded) + 1 - nFrames,
	}, nil
}

// Len returns the number of blocks
func (w *Windower) Len() int {
	return w.frames
}

// NumFrames returns the frames per block
func (w *Windower) NumFrames() int {
	return w.nFrames
}

// NumBins returns the bins per frame
func (w *Windower) NumBins() int {
	return w.nBins
}

// Window returns the block starting at padded frame i. The rows alias the
// windower's storage and must not be modified.
func (w *Windower) Window(i int) ([][]float64, error) {
	if i < 0 || i >= w.frames {
		return nil, fmt.Errorf("window %d out of range [0, %d)", i, w.frames)
	}
	return w.padded[i : i+w.nFrames], nil
}
