package tonal

import (
	"encoding/json"
	"testing"
)

func rotate(x []float64, k int) []float64 {
	out := make([]float64, len(x))
	for j := range out {
		out[j] = x[((j-k)%12+12)%12]
	}
	return out
}

func TestEstimateKey(t *testing.T) {
	tests := []struct {
		name    string
		profile []float64
		baseC   bool
		want    string
		mode    KeyMode
	}{
		{"C major template", krumhanslMajor, true, "C", KeyModeMajor},
		{"A major from an A-based profile", krumhanslMajor, false, "A", KeyModeMajor},
		{"G major", rotate(krumhanslMajor, 7), true, "G", KeyModeMajor},
		{"A minor template", krumhanslMinor, false, "Am", KeyModeMinor},
		{"D minor", rotate(krumhanslMinor, 2), true, "Dm", KeyModeMinor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EstimateKey(tt.profile, tt.baseC)
			if err != nil {
				t.Fatalf("EstimateKey failed: %v", err)
			}
			if got.Key != tt.want || got.Mode != tt.mode {
				t.Errorf("got %s (%v), want %s (%v)", got.Key, got.Mode, tt.want, tt.mode)
			}
		})
	}
}

func TestEstimateKeyScaleInvariant(t *testing.T) {
	profile := make([]float64, 12)
	for i, v := range krumhanslMajor {
		profile[i] = 40*v + 3
	}
	got, err := EstimateKey(profile, true)
	if err != nil {
		t.Fatalf("EstimateKey failed: %v", err)
	}
	if got.Key != "C" {
		t.Errorf("got %s, want C", got.Key)
	}
}

func TestEstimateKeyWrongSize(t *testing.T) {
	if _, err := EstimateKey(make([]float64, 24), true); err == nil {
		t.Fatal("expected an error for a 24-bin profile")
	}
}

func TestPitchNames(t *testing.T) {
	c := PitchNames(true)
	a := PitchNames(false)
	if c[0] != "C" || c[9] != "A" || a[0] != "A" || a[3] != "C" {
		t.Errorf("unexpected names: %v / %v", c, a)
	}
}

func TestNote(t *testing.T) {
	n := Note{Pitch: 48}
	if n.MIDI() != 69 || n.PitchClass() != "A" {
		t.Errorf("A4: MIDI %d class %s", n.MIDI(), n.PitchClass())
	}
	if (Note{Pitch: 39}).PitchClass() != "C" {
		t.Error("pitch 39 should be middle C")
	}
}

func notesOf(pitches ...int) [][]Note {
	var out [][]Note
	for _, p := range pitches {
		out = append(out, []Note{{Pitch: p, Velocity: 0.9}})
	}
	return out
}

func TestScaleFromNotes(t *testing.T) {
	// C major, with C most frequent and G second
	notes := notesOf(3, 3, 3, 10, 10, 5, 7, 8, 0, 2, 15)
	scale := ScaleFromNotes(notes, 7)

	if len(scale) != 7 {
		t.Fatalf("scale has %d notes", len(scale))
	}
	if scale[0] != "C" || scale[1] != "G" {
		t.Errorf("unexpected order %v", scale)
	}
	for _, n := range scale {
		if len(n) > 1 {
			t.Errorf("unexpected accidental %s in %v", n, scale)
		}
	}
}

func TestKeyFromScale(t *testing.T) {
	tests := []struct {
		scale []string
		want  string
	}{
		{[]string{"C", "G", "E", "D", "F", "A", "B"}, "C"},
		{[]string{"A", "E", "C", "D", "G", "F", "B"}, "Am"},
		{[]string{"G", "D", "B", "F#", "A", "C", "E"}, "G"},
		{[]string{"E", "B", "G", "F#", "A", "C", "D"}, "Em"},
		{[]string{"F", "C", "A", "Bb", "G", "D", "E"}, "F"},
		{[]string{"D", "A", "F#", "C#", "E", "G", "B"}, "D"},
		{[]string{"Eb", "Bb", "G", "Ab", "C", "D", "F"}, "Eb"},
		{[]string{"E", "B", "Ab", "C#", "F#", "A", "Eb"}, "E"},
		{[]string{"B", "F#", "Eb", "E", "C#", "Ab", "Bb"}, "B"},
		{[]string{"G", "D", "B", "F#", "F", "C", "E"}, ""},
		{[]string{"C#", "D", "Eb", "E", "F", "G", "A"}, ""},
	}

	for _, tt := range tests {
		if got := KeyFromScale(tt.scale); got != tt.want {
			t.Errorf("KeyFromScale(%v) = %q, want %q", tt.scale, got, tt.want)
		}
	}
}

func TestKeySignatureAccidentals(t *testing.T) {
	tests := []struct {
		key   string
		acc   int
		minor bool
	}{
		{"C", 0, false},
		{"Am", 0, true},
		{"Em", 1, true},
		{"F#", 6, false},
		{"Bbm", -5, true},
		{"F", -1, false},
		{"Dm", -1, true},
	}
	for _, tt := range tests {
		acc, minor, ok := KeySignatureAccidentals(tt.key)
		if !ok || acc != tt.acc || minor != tt.minor {
			t.Errorf("%s: got %d %v %v", tt.key, acc, minor, ok)
		}
	}

	if _, _, ok := KeySignatureAccidentals("H"); ok {
		t.Error("unknown key reported as known")
	}
}

func TestKeyModeJSON(t *testing.T) {
	data, err := json.Marshal(KeyEstimate{Key: "Am", Mode: KeyModeMinor})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var back KeyEstimate
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.Mode != KeyModeMinor {
		t.Errorf("mode = %v, want minor", back.Mode)
	}
}
