package spectral

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/RyanBlaney/sonido-piano/algorithms/common"
	"github.com/RyanBlaney/sonido-piano/algorithms/windowing"
)

func sine(freq float64, rate, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(rate))
	}
	return x
}

func TestNewSTFTRejectsNonPowerOfTwo(t *testing.T) {
	_, err := NewSTFT(STFTConfig{FrameLength: 1000, Window: windowing.Hann})
	if !errors.Is(err, ErrFrameLength) {
		t.Fatalf("expected ErrFrameLength, got %v", err)
	}
}

func TestSTFTFrameCountAndDefaultHop(t *testing.T) {
	s, err := NewSTFT(STFTConfig{FrameLength: 256, Window: windowing.Hann, PadMode: common.PadMirror})
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Forward(sine(1000, 8000, 1000), 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.HopLength != 64 {
		t.Errorf("hop = %d, want 64", res.HopLength)
	}
	// padded length 1256, (1256-256)/64 + 1
	if res.NumFrames != 16 || len(res.Frames) != 16 {
		t.Errorf("frames = %d, want 16", res.NumFrames)
	}
	if res.NumBins != 129 || len(res.Frames[0]) != 129 {
		t.Errorf("bins = %d, want 129", res.NumBins)
	}

	if _, err := s.Forward(sine(1000, 8000, 10), -1); !errors.Is(err, ErrHopLength) {
		t.Errorf("expected ErrHopLength, got %v", err)
	}
}

func TestSTFTPeakBin(t *testing.T) {
	s, _ := NewSTFT(STFTConfig{FrameLength: 512, Window: windowing.Hann, PadMode: common.PadMirror})
	// bin 32 of a 512-point FFT at 8 kHz is 500 Hz
	res, err := s.Forward(sine(500, 8000, 4000), 128)
	if err != nil {
		t.Fatal(err)
	}

	mag := res.Magnitude(1)
	mid := mag[res.NumFrames/2]
	best := 0
	for k := range mid {
		if mid[k] > mid[best] {
			best = k
		}
	}
	if best != 32 {
		t.Errorf("peak bin = %d, want 32", best)
	}
}

func TestSTFTMatchesConjugatedComplexFFT(t *testing.T) {
	const n = 64
	signal := sine(123, 1000, 300)
	for i := range signal {
		signal[i] += 0.1 * float64(i%7)
	}

	s, _ := NewSTFT(STFTConfig{FrameLength: n, Window: windowing.Hamming, PadMode: common.PadConstant})
	res, err := s.Forward(signal, 16)
	if err != nil {
		t.Fatal(err)
	}

	padded := common.PadCentered(signal, n/2, common.PadConstant)
	win := windowing.Coefficients(windowing.Hamming, n)
	frameIdx := 5
	frame := make([]complex128, n)
	for i := range frame {
		frame[i] = complex(padded[frameIdx*16+i]*win[i], 0)
	}
	reference := NewFFT().ComputeComplex(frame)

	for k := 0; k <= n/2; k++ {
		if cmplx.Abs(res.Frames[frameIdx][k]-cmplx.Conj(reference[k])) > 1e-9 {
			t.Fatalf("bin %d: got %v, want %v", k, res.Frames[frameIdx][k], cmplx.Conj(reference[k]))
		}
	}
}

func TestComputeComplexEmpty(t *testing.T) {
	if out := NewFFT().ComputeComplex(nil); len(out) != 0 {
		t.Errorf("expected empty spectrum, got %d bins", len(out))
	}
}

func TestRealFFTInverse(t *testing.T) {
	r := NewRealFFT(16)
	x := sine(2, 16, 16)
	back := r.Inverse(nil, r.Forward(nil, x))
	for i := range x {
		if math.Abs(back[i]-x[i]) > 1e-12 {
			t.Fatalf("sample %d: %v != %v", i, back[i], x[i])
		}
	}
}

func TestWorkerCountAtLeastOne(t *testing.T) {
	for _, n := range []int{0, 1, 50, 500, 5000} {
		if w := getOptimalWorkerCount(n); w < 1 {
			t.Errorf("getOptimalWorkerCount(%d) = %d", n, w)
		}
	}
}
