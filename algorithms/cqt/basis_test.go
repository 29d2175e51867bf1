package cqt

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/RyanBlaney/sonido-piano/algorithms/common"
	"github.com/RyanBlaney/sonido-piano/algorithms/windowing"
)

func windowedTaps(n int) []complex128 {
	taps := make([]complex128, n)
	for i := range taps {
		taps[i] = cmplx.Exp(complex(0, 0.3*float64(i)))
	}
	windowing.New(windowing.Hann, n).ApplyComplexInPlace(taps)
	return taps
}

func TestNormalizeFilterTwiceEqualsOnce(t *testing.T) {
	for _, kind := range []common.NormType{common.NormL1, common.NormL2, common.NormInf} {
		// one tap past size, as an integral filter length writes
		taps := windowedTaps(101)
		if err := normalizeFilter(taps, 100, kind); err != nil {
			t.Fatalf("norm %v: %v", kind, err)
		}
		if n := common.NormComplex(taps[:100], kind); math.Abs(n-1) > 1e-12 {
			t.Errorf("norm %v: normalized filter has norm %g", kind, n)
		}

		once := append([]complex128(nil), taps...)
		if err := normalizeFilter(taps, 100, kind); err != nil {
			t.Fatalf("norm %v: %v", kind, err)
		}
		for i := range taps {
			if cmplx.Abs(taps[i]-once[i]) > 1e-12 {
				t.Fatalf("norm %v: tap %d moved from %v to %v", kind, i, once[i], taps[i])
			}
		}
	}
}

func TestNormalizeFilterRejectsZero(t *testing.T) {
	if err := normalizeFilter(make([]complex128, 8), 8, common.NormL1); err == nil {
		t.Error("expected error for an all-zero filter")
	}
}

func TestBuildFilterHalfSpectrum(t *testing.T) {
	fb := NewFilterBank(12, 1, common.NormL1, windowing.Hann)
	length := fb.Q() * 22050 / 440

	spectrum, err := fb.buildFilter(440, length, 22050, 2048)
	if err != nil {
		t.Fatalf("buildFilter failed: %v", err)
	}
	if len(spectrum) != 1025 {
		t.Fatalf("spectrum has %d bins, want 1025", len(spectrum))
	}

	// 440 Hz sits near bin 40.9 of a 2048-point frame at 22050 Hz
	best := 0
	for k, v := range spectrum {
		if cmplx.Abs(v) > cmplx.Abs(spectrum[best]) {
			best = k
		}
	}
	if best < 40 || best > 42 {
		t.Errorf("filter peaks at bin %d, want about 41", best)
	}
}
