package tonal

import (
	"fmt"

	"github.com/RyanBlaney/sonido-piano/algorithms/common"
	"gonum.org/v1/gonum/floats"
)

// KeyMode represents major or minor mode
type KeyMode int

const (
	KeyModeMajor KeyMode = iota
	KeyModeMinor
)

func (m KeyMode) String() string {
	if m == KeyModeMinor {
		return "minor"
	}
	return "major"
}

// MarshalText implements encoding.TextMarshaler
func (m KeyMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *KeyMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "major":
		*m = KeyModeMajor
	case "minor":
		*m = KeyModeMinor
	default:
		return fmt.Errorf("unknown key mode %q", text)
	}
	return nil
}

// Probe-tone ratings of Krumhansl and Kessler, tonic first
var (
	krumhanslMajor = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	krumhanslMinor = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// pitchNames starts at A, the lowest piano key
var pitchNames = [12]string{"A", "Bb", "B", "C", "C#", "D", "Eb", "E", "F", "F#", "G", "Ab"}

// PitchNames returns the twelve pitch-class names starting at C or at A
func PitchNames(baseC bool) [12]string {
	if !baseC {
		return pitchNames
	}
	var names [12]string
	for i := range names {
		names[i] = pitchNames[(i+3)%12]
	}
	return names
}

// KeyEstimate is the outcome of profile correlation
type KeyEstimate struct {
	Key        string  `json:"key"` // "C", "F#m", ...
	Tonic      int     `json:"tonic"`
	Mode       KeyMode `json:"mode"`
	MajorScore float64 `json:"major_score"`
	MinorScore float64 `json:"minor_score"`
}

// EstimateKey finds the key of a 12-bin chroma profile with the
// Krumhansl-Schmuckler algorithm. Profile and templates are mean-centred and
// the profile is rotated through all twelve transpositions; since the
// denominators of the correlation never change, only the dot products are
// compared. baseC tells whether profile[0] is C or A.
func EstimateKey(profile []float64, baseC bool) (KeyEstimate, error) {
	if len(profile) != 12 {
		return KeyEstimate{}, fmt.Errorf("need a 12-bin chroma pitch profile to estimate the key signature, got %d bins", len(profile))
	}

	p := centered(profile)
	major := centered(krumhanslMajor)
	minor := centered(krumhanslMinor)

	rotated := make([]float64, 12)
	bestMajor, bestMinor := 0, 0
	var majorScores, minorScores [12]float64
	for i := range 12 {
		for k := range rotated {
			rotated[k] = p[(k+i)%12]
		}
		majorScores[i] = floats.Dot(rotated, major)
		minorScores[i] = floats.Dot(rotated, minor)

		if majorScores[i] > majorScores[bestMajor] {
			bestMajor = i
		}
		if minorScores[i] > minorScores[bestMinor] {
			bestMinor = i
		}
	}

	names := PitchNames(baseC)
	est := KeyEstimate{
		MajorScore: majorScores[bestMajor],
		MinorScore: minorScores[bestMinor],
	}
	if est.MajorScore > est.MinorScore {
		est.Tonic, est.Mode = bestMajor, KeyModeMajor
		est.Key = names[bestMajor]
	} else {
		est.Tonic, est.Mode = bestMinor, KeyModeMinor
		est.Key = names[bestMinor] + "m"
	}
	return est, nil
}

func centered(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	floats.AddConst(-common.Mean(x), out)
	return out
}
