package spectral

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"runtime"
	"sync"

	"github.com/RyanBlaney/sonido-piano/algorithms/common"
	"github.com/RyanBlaney/sonido-piano/algorithms/windowing"
)

var (
	// ErrFrameLength is returned when the frame length is not a power of two
	ErrFrameLength = errors.New("frame length must be a power of two")
	// ErrHopLength is returned for a negative hop length
	ErrHopLength = errors.New("hop length must be a positive integer")
)

// STFTConfig describes the framing of a Short-Time Fourier Transform
type STFTConfig struct {
	FrameLength int            `json:"frame_length"`
	Window      windowing.Type `json:"window"`
	PadMode     common.PadMode `json:"pad_mode"`
}

// DefaultSTFTConfig returns a 2048-point Hann STFT with reflect padding
func DefaultSTFTConfig() STFTConfig {
	return STFTConfig{
		FrameLength: 2048,
		Window:      windowing.Hann,
		PadMode:     common.PadMirror,
	}
}

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	frameLength int
	padMode     common.PadMode
	window      []float64
}

// STFTResult holds the result of STFT analysis
type STFTResult struct {
	Frames      [][]complex128 `json:"-"`            // Time x Frequency complex spectrogram
	NumFrames   int            `json:"num_frames"`   // Number of time frames
	NumBins     int            `json:"num_bins"`     // 1 + FrameLength/2
	FrameLength int            `json:"frame_length"` // FFT window size
	HopLength   int            `json:"hop_length"`   // Hop size between frames
}

// NewSTFT creates a new STFT calculator
func NewSTFT(cfg STFTConfig) (*STFT, error) {
	if !common.IsPowerOfTwo(cfg.FrameLength) {
		return nil, fmt.Errorf("%w: got %d", ErrFrameLength, cfg.FrameLength)
	}

	return &STFT{
		frameLength: cfg.FrameLength,
		padMode:     cfg.PadMode,
		window:      windowing.Coefficients(cfg.Window, cfg.FrameLength),
	}, nil
}

// FrameLength returns the FFT frame size
func (s *STFT) FrameLength() int {
	return s.frameLength
}

// ResolveHop returns the effective hop length; 0 selects FrameLength/4
func (s *STFT) ResolveHop(hop int) (int, error) {
	if hop < 0 {
		return 0, fmt.Errorf("%w: got %d", ErrHopLength, hop)
	}
	if hop == 0 {
		hop = s.frameLength / 4
	}
	if hop == 0 {
		return 0, fmt.Errorf("%w: hop resolves to zero for frame length %d", ErrHopLength, s.frameLength)
	}
	return hop, nil
}

// Forward computes the centered STFT of signal. Output bins are the conjugate of
// the usual e^{-i} transform.
func (s *STFT) Forward(signal []float64, hop int) (*STFTResult, error) {
	hop, err := s.ResolveHop(hop)
	if err != nil {
		return nil, err
	}

	padded := common.PadCentered(signal, s.frameLength/2, s.padMode)

	numFrames := 0
	if len(padded) >= s.frameLength {
		numFrames = (len(padded)-s.frameLength)/hop + 1
	}
	numBins := s.frameLength/2 + 1

	frames := make([][]complex128, numFrames)
	for i := range frames {
		frames[i] = make([]complex128, numBins)
	}

	// Determine optimal number of workers based on system and workload
	numWorkers := getOptimalWorkerCount(numFrames)

	jobs := make(chan int, numFrames)
	var wg sync.WaitGroup

	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// gonum FFTs carry work buffers, so each worker owns one
			transform := NewRealFFT(s.frameLength)
			frameBuffer := make([]float64, s.frameLength)

			for frameIdx := range jobs {
				start := frameIdx * hop
				for i, w := range s.window {
					frameBuffer[i] = padded[start+i] * w
				}

				out := transform.Forward(frames[frameIdx], frameBuffer)
				for i, v := range out {
					out[i] = cmplx.Conj(v)
				}
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameIdx
	}
	close(jobs)

	wg.Wait()

	return &STFTResult{
		Frames:      frames,
		NumFrames:   numFrames,
		NumBins:     numBins,
		FrameLength: s.frameLength,
		HopLength:   hop,
	}, nil
}

// Magnitude returns |X|^power for every frame and bin (frames x bins)
func (r *STFTResult) Magnitude(power float64) [][]float64 {
	out := make([][]float64, r.NumFrames)
	for t, frame := range r.Frames {
		out[t] = make([]float64, len(frame))
		for k, v := range frame {
			mag := cmplx.Abs(v)
			switch power {
			case 1:
				out[t][k] = mag
			case 2:
				out[t][k] = mag * mag
			default:
				out[t][k] = math.Pow(mag, power)
			}
		}
	}
	return out
}

// getOptimalWorkerCount determines the optimal number of workers based on workload
func getOptimalWorkerCount(numFrames int) int {
	// Base number on available CPUs
	numCPU := runtime.NumCPU()

	var workers int
	switch {
	case numFrames < 100:
		// small workloads don't pay for many goroutines
		workers = min(numCPU/2, numFrames)
	case numFrames < 1000:
		workers = min(numCPU, 8)
	default:
		workers = numCPU
	}

	return max(workers, 1)
}
