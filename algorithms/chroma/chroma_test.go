package chroma

import (
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-piano/algorithms/common"
	"github.com/RyanBlaney/sonido-piano/algorithms/windowing"
)

func TestFilterBankRolledToC(t *testing.T) {
	bank, err := FilterBank(88, 12, 27.5, DefaultChromaConfig())
	if err != nil {
		t.Fatalf("FilterBank failed: %v", err)
	}
	rows, cols := bank.Dims()
	if rows != 12 || cols != 88 {
		t.Fatalf("dims = %dx%d, want 12x88", rows, cols)
	}

	// bin 3 is C1 above A0
	for j := range cols {
		want := 0.0
		if j%12 == 3 {
			want = 1
		}
		if bank.At(0, j) != want {
			t.Fatalf("C row at bin %d = %g, want %g", j, bank.At(0, j), want)
		}
	}
}

func TestFilterBankBaseA(t *testing.T) {
	cfg := DefaultChromaConfig()
	cfg.BaseC = false

	bank, err := FilterBank(88, 12, 27.5, cfg)
	if err != nil {
		t.Fatalf("FilterBank failed: %v", err)
	}
	if bank.At(0, 0) != 1 || bank.At(0, 12) != 1 || bank.At(0, 3) != 0 {
		t.Error("A row does not collect the A bins")
	}
}

func TestFilterBankMergesFractionalBins(t *testing.T) {
	cfg := DefaultChromaConfig()
	cfg.BaseC = false

	bank, err := FilterBank(352, 48, 27.5, cfg)
	if err != nil {
		t.Fatalf("FilterBank failed: %v", err)
	}

	// four bins per semitone, centred on the semitone bin
	for _, j := range []int{46, 47, 0, 1, 48, 49, 94, 95} {
		if bank.At(0, j) != 1 {
			t.Errorf("A row misses bin %d", j)
		}
	}
	if bank.At(0, 2) != 0 || bank.At(1, 2) != 1 {
		t.Error("bin 2 should belong to Bb")
	}

	for j := range 352 {
		sum := 0.0
		for k := range 12 {
			sum += bank.At(k, j)
		}
		if sum != 1 {
			t.Fatalf("bin %d belongs to %g chroma", j, sum)
		}
	}
}

func TestFilterBankIncompatibleMerge(t *testing.T) {
	if _, err := FilterBank(88, 10, 27.5, DefaultChromaConfig()); err == nil {
		t.Fatal("expected an error for 10 bins per octave")
	}
}

func TestFilterBankWindowed(t *testing.T) {
	cfg := DefaultChromaConfig()
	cfg.Window = windowing.Hann

	bank, err := FilterBank(88, 12, 27.5, cfg)
	if err != nil {
		t.Fatalf("FilterBank failed: %v", err)
	}
	if bank.At(0, 3) >= 0.05 {
		t.Errorf("edge of a Hann-weighted bank should be near zero, got %g", bank.At(0, 3))
	}
	if bank.At(0, 39) <= 0.9 {
		t.Errorf("middle of a Hann-weighted bank should be near one, got %g", bank.At(0, 39))
	}
}

func TestChromagramA4(t *testing.T) {
	frames := make([][]float64, 5)
	for i := range frames {
		frames[i] = make([]float64, 88)
		for j := range frames[i] {
			frames[i][j] = -80
		}
		frames[i][48] = 0
	}

	chroma, err := Chromagram(frames, 12, 27.5, DefaultChromaConfig())
	if err != nil {
		t.Fatalf("Chromagram failed: %v", err)
	}
	if len(chroma) != 5 || len(chroma[0]) != 12 {
		t.Fatalf("unexpected shape %dx%d", len(chroma), len(chroma[0]))
	}

	for _, frame := range chroma {
		best := 0
		for k, v := range frame {
			if v > frame[best] {
				best = k
			}
		}
		if best != 9 {
			t.Errorf("dominant chroma = %d, want 9 (A)", best)
		}
		if math.Abs(common.Norm(frame, common.NormInf)-1) > 1e-12 {
			t.Errorf("frame not infinity-normalized: %v", frame)
		}
	}
}

func TestSum(t *testing.T) {
	chroma := [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{1, 1, 0},
	}

	all, err := Sum(chroma, nil, false)
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	if all[0] != 2 || all[1] != 2 || all[2] != 1 {
		t.Errorf("sum over all frames = %v", all)
	}

	onsets, err := Sum(chroma, []int{0, 3}, true)
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	if onsets[0] != 2 || onsets[1] != 1 || onsets[2] != 0 {
		t.Errorf("sum over onsets = %v", onsets)
	}

	if _, err := Sum(chroma, []int{4}, true); err == nil {
		t.Error("expected an error for an onset outside the chromagram")
	}
}
