package harmonic

import (
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-piano/logging"
)

func init() {
	logging.SetGlobalLogger(nil)
}

// lineSpectrogram holds a sustained tone at bin 10 and a click at frame 50
func lineSpectrogram() [][]float64 {
	S := make([][]float64, 100)
	for t := range S {
		S[t] = make([]float64, 48)
		S[t][10] = 1
	}
	for f := range S[50] {
		S[50][f] = 1
	}
	return S
}

func TestSeparateSplitsToneAndClick(t *testing.T) {
	S := lineSpectrogram()
	sep, err := Separate(S, DefaultHPSSConfig())
	if err != nil {
		t.Fatalf("Separate failed: %v", err)
	}

	if len(sep.Harmonic) != 100 || len(sep.Percussive[0]) != 48 {
		t.Fatalf("unexpected output shape")
	}

	if h := sep.Harmonic[20][10]; math.Abs(h-1) > 1e-9 {
		t.Errorf("tone harmonic = %g, want 1", h)
	}
	if p := sep.Percussive[20][10]; p > 1e-9 {
		t.Errorf("tone percussive = %g, want 0", p)
	}
	if p := sep.Percussive[50][30]; math.Abs(p-1) > 1e-9 {
		t.Errorf("click percussive = %g, want 1", p)
	}
	if h := sep.Harmonic[50][30]; h > 1e-9 {
		t.Errorf("click harmonic = %g, want 0", h)
	}
}

func TestSeparateSumsToInputWithUnitMargins(t *testing.T) {
	S := lineSpectrogram()
	for t := range S {
		for f := range S[t] {
			S[t][f] += 0.1 * float64((t*7+f*3)%5)
		}
	}

	sep, err := Separate(S, DefaultHPSSConfig())
	if err != nil {
		t.Fatalf("Separate failed: %v", err)
	}
	for ti := range S {
		for f := range S[ti] {
			if d := math.Abs(sep.Harmonic[ti][f] + sep.Percussive[ti][f] - S[ti][f]); d > 1e-9 {
				t.Fatalf("H+P differs from S by %g at (%d, %d)", d, ti, f)
			}
		}
	}
}

func TestSeparateHardMask(t *testing.T) {
	cfg := DefaultHPSSConfig()
	cfg.Power = math.Inf(1)

	sep, err := Separate(lineSpectrogram(), cfg)
	if err != nil {
		t.Fatalf("Separate failed: %v", err)
	}
	for _, frame := range sep.Harmonic {
		for _, v := range frame {
			if v != 0 && v != 1 {
				t.Fatalf("hard mask produced %g", v)
			}
		}
	}
}

func TestSeparateRejectsSmallMargins(t *testing.T) {
	cfg := DefaultHPSSConfig()
	cfg.MarginPercussive = 0.5
	if _, err := Separate(lineSpectrogram(), cfg); err == nil {
		t.Fatal("expected an error for margin < 1")
	}
}

func TestSeparateEmpty(t *testing.T) {
	sep, err := Separate(nil, DefaultHPSSConfig())
	if err != nil {
		t.Fatalf("Separate failed: %v", err)
	}
	if len(sep.Harmonic) != 0 || len(sep.Percussive) != 0 {
		t.Error("expected empty separation")
	}
}

func TestSoftMask(t *testing.T) {
	tests := []struct {
		name       string
		x, ref     float64
		power      float64
		splitZeros bool
		want       float64
	}{
		{"equal", 1, 1, 2, true, 0.5},
		{"dominant", 3, 1, 2, true, 0.9},
		{"zeros split", 0, 0, 2, true, 0.5},
		{"zeros no split", 0, 0, 2, false, 0},
		{"hard tie", 1, 1, math.Inf(1), true, 0},
		{"hard win", 2, 1, math.Inf(1), true, 1},
		{"huge power", 1e200, 1e199, 50, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := softMask(tt.x, tt.ref, tt.power, tt.splitZeros)
			if math.Abs(got-tt.want) > 1e-9 || math.IsNaN(got) {
				t.Errorf("softMask = %g, want %g", got, tt.want)
			}
		})
	}
}
