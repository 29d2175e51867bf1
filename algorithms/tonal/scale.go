package tonal

import (
	"slices"
	"sort"
	"strings"
)

// Note is one detected piano key at an onset
type Note struct {
	Pitch    int     `json:"pitch"` // 0 is A0, 87 is C8
	Velocity float64 `json:"velocity"`
}

// MIDI returns the MIDI note number
func (n Note) MIDI() int {
	return n.Pitch + 21
}

// PitchClass returns the name of the note's pitch class
func (n Note) PitchClass() string {
	return pitchNames[((n.Pitch%12)+12)%12]
}

// ScaleFromNotes returns the topN most frequent pitch classes among the
// detected notes, most frequent first. Ties go to the name that sorts last.
func ScaleFromNotes(notes [][]Note, topN int) []string {
	type classCount struct {
		name  string
		count int
	}

	counts := make([]classCount, 12)
	for i := range counts {
		counts[i].name = pitchNames[i]
	}
	for _, onset := range notes {
		for _, n := range onset {
			counts[((n.Pitch%12)+12)%12].count++
		}
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].name > counts[j].name
	})

	topN = min(max(topN, 0), 12)
	scale := make([]string, topN)
	for i := range scale {
		scale[i] = counts[i].name
	}
	return scale
}

// KeyFromScale names the key signature whose accidentals match a
// seven-note scale. Between the relative major and minor the one whose tonic
// ranks higher in the scale wins. It returns "" when no signature matches.
func KeyFromScale(scale []string) string {
	var blacks []string
	for _, n := range scale {
		if len(n) > 1 {
			blacks = append(blacks, n)
		}
	}
	sort.Strings(blacks)

	has := func(n string) bool { return slices.Contains(scale, n) }
	lacks := func(ns ...string) bool {
		for _, n := range ns {
			if has(n) {
				return false
			}
		}
		return true
	}
	rank := func(n string) int {
		if i := slices.Index(scale, n); i >= 0 {
			return i
		}
		return len(scale)
	}
	majorMinor := func(major, minor string) string {
		if rank(major) < rank(minor) {
			return major
		}
		return minor + "m"
	}

	switch strings.Join(blacks, " ") {
	case "":
		return majorMinor("C", "A")
	case "F#":
		if lacks("F") {
			return majorMinor("G", "E")
		}
	case "Bb":
		if lacks("B") {
			return majorMinor("F", "D")
		}
	case "C# F#":
		if lacks("C", "F") {
			return majorMinor("D", "B")
		}
	case "Bb Eb":
		if lacks("B", "E") {
			return majorMinor("Bb", "G")
		}
	case "Ab C# F#":
		if lacks("C", "F", "G") {
			return majorMinor("A", "F#")
		}
	case "Ab Bb Eb":
		if lacks("B", "E", "A") {
			return majorMinor("Eb", "C")
		}
	case "Ab C# Eb F#":
		if lacks("C", "D", "F", "G") {
			return majorMinor("E", "C#")
		}
	case "Ab Bb C# Eb":
		if lacks("B", "E", "A", "D") {
			return majorMinor("Ab", "F")
		}
	default:
		if len(blacks) < 5 {
			return ""
		}
		if has("B") && has("E") {
			return majorMinor("B", "Ab")
		}
		if has("C") && has("F") {
			return majorMinor("C#", "Bb")
		}
	}
	return ""
}

// keySignatures maps a key to sharps (positive) or flats (negative)
var keySignatures = map[string]int{
	"C": 0, "Am": 0,
	"G": 1, "Em": 1,
	"D": 2, "Bm": 2,
	"A": 3, "F#m": 3,
	"E": 4, "C#m": 4,
	"B": 5, "Abm": 5,
	"F#": 6, "Ebm": 6,
	"C#": -5, "Bbm": -5,
	"Ab": -4, "Fm": -4,
	"Eb": -3, "Cm": -3,
	"Bb": -2, "Gm": -2,
	"F": -1, "Dm": -1,
}

// KeySignatureAccidentals returns the accidentals of a key for a MIDI key
// signature event and whether the key is minor. ok is false for an unknown key.
func KeySignatureAccidentals(key string) (accidentals int, minor, ok bool) {
	accidentals, ok = keySignatures[key]
	if !ok {
		return 0, false, false
	}
	return accidentals, strings.HasSuffix(key, "m"), true
}
