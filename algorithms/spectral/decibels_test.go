package spectral

import (
	"math"
	"testing"
)

func TestPower2DB(t *testing.T) {
	in := [][]float64{{1, 10, 100}, {1e-20, 1000, 0}}

	out, err := Power2DB(in, 1, DefaultPowerAMin, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]float64{{0, 10, 20}, {-100, 30, -100}}
	for i := range want {
		for j := range want[i] {
			if math.Abs(out[i][j]-want[i][j]) > 1e-9 {
				t.Fatalf("out[%d][%d] = %v, want %v", i, j, out[i][j], want[i][j])
			}
		}
	}

	floored, _ := Power2DB(in, 1, DefaultPowerAMin, 25)
	if floored[0][0] != 5 || floored[1][1] != 30 {
		t.Errorf("topDB floor not applied: %v", floored)
	}

	if _, err := Power2DB([][]float64{{-1}}, 1, DefaultPowerAMin, 0); err == nil {
		t.Error("expected error for negative power")
	}
}

func TestAmplitude2DB(t *testing.T) {
	out, err := Amplitude2DB([][]float64{{10, 1}}, 1, DefaultAmplitudeAMin, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(out[0][0]-20) > 1e-9 || math.Abs(out[0][1]) > 1e-9 {
		t.Errorf("got %v", out)
	}
}

func TestTrimSilence(t *testing.T) {
	m := [][]float64{
		{0, 0},
		{1e-9, 1e-9},
		{1, 1},
		{0.5, 0.2},
		{1e-8, 0},
	}

	start, end, err := TrimSilence(m, DefaultPowerAMin, DefaultSilenceTopDB)
	if err != nil {
		t.Fatal(err)
	}
	if start != 2 || end != 4 {
		t.Errorf("range = [%d, %d), want [2, 4)", start, end)
	}

	silent := [][]float64{{0, 0}, {0, 0}}
	if s, e, _ := TrimSilence(silent, DefaultPowerAMin, DefaultSilenceTopDB); s != 0 || e != 0 {
		t.Errorf("silent range = [%d, %d), want empty", s, e)
	}
}
