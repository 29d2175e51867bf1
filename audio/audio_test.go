package audio

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"
)

func tone(freq float64, rate int, seconds float64) *Signal {
	n := int(seconds * float64(rate))
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(rate))
	}
	return NewSignal(x, rate)
}

func TestHalvingWithSqrt2PreservesEnergy(t *testing.T) {
	s := tone(440, 22050, 2)
	before := s.Energy()

	if err := s.MonoResample(11025); err != nil {
		t.Fatal(err)
	}
	s.Scale(math.Sqrt2)

	if s.Len() != 22050 || s.SampleRate != 11025 {
		t.Fatalf("len %d rate %d", s.Len(), s.SampleRate)
	}
	if rel := math.Abs(s.Energy()-before) / before; rel > 0.02 {
		t.Errorf("energy changed by %.2f%%", 100*rel)
	}
}

func TestResamplePreservesTone(t *testing.T) {
	s := tone(440, 22050, 1)
	if err := s.MonoResample(11025); err != nil {
		t.Fatal(err)
	}

	ref := tone(440, 11025, 1)
	// skip the filter edges
	for i := 200; i < s.Len()-200; i++ {
		if math.Abs(s.Samples[i]-ref.Samples[i]) > 0.01 {
			t.Fatalf("sample %d = %v, want %v", i, s.Samples[i], ref.Samples[i])
		}
	}
}

func TestUpsampleLength(t *testing.T) {
	s := tone(100, 8000, 0.5)
	if err := s.MonoResample(16000); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 8000 {
		t.Errorf("len = %d, want 8000", s.Len())
	}
}

func TestResampleSameRateIsNoOp(t *testing.T) {
	s := tone(100, 8000, 0.1)
	first := s.Samples[10]
	if err := s.MonoResample(8000); err != nil {
		t.Fatal(err)
	}
	if s.Samples[10] != first || s.Len() != 800 {
		t.Error("same-rate resample modified the signal")
	}
}

func TestResampleTooShort(t *testing.T) {
	s := NewSignal([]float64{1}, 22050)
	err := s.MonoResample(11025)
	if !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
}

func TestDuration(t *testing.T) {
	s := NewSignal(make([]float64, 11025), 22050)
	if s.Duration() != 500*time.Millisecond {
		t.Errorf("duration = %v", s.Duration())
	}
	c := s.Clone()
	c.Samples[0] = 1
	if s.Samples[0] != 0 {
		t.Error("Clone shares samples")
	}
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	s := tone(220, 16000, 0.25)
	s.Scale(0.8)

	if err := WriteWAV(path, s, 16); err != nil {
		t.Fatal(err)
	}

	got, err := LoadWAV(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.SampleRate != 16000 || got.Len() != s.Len() {
		t.Fatalf("rate %d len %d", got.SampleRate, got.Len())
	}
	for i := range s.Samples {
		if math.Abs(got.Samples[i]-s.Samples[i]) > 1e-3 {
			t.Fatalf("sample %d = %v, want %v", i, got.Samples[i], s.Samples[i])
		}
	}
}

func TestLoadWAVRejectsGarbage(t *testing.T) {
	if _, err := LoadWAV(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}
