package inference

import (
	"context"
	"errors"
	"testing"

	"github.com/RyanBlaney/sonido-piano/logging"
)

func init() {
	logging.SetGlobalLogger(nil)
}

func features(frames, bins int) [][]float64 {
	m := make([][]float64, frames)
	for t := range m {
		m[t] = make([]float64, bins)
		for f := range m[t] {
			m[t][f] = float64(t + 1)
		}
	}
	return m
}

func TestWindowerPadding(t *testing.T) {
	w, err := NewWindower(features(10, 4), 7)
	if err != nil {
		t.Fatalf("NewWindower failed: %v", err)
	}
	if w.Len() != 10 {
		t.Fatalf("Len = %d, want 10", w.Len())
	}

	first, err := w.Window(0)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if len(first) != 7 {
		t.Fatalf("block has %d frames, want 7", len(first))
	}
	// three zero frames, then frame 0 in the middle
	if first[2][0] != 0 || first[3][0] != 1 {
		t.Errorf("block 0 not centred on frame 0: %v", first)
	}

	last, _ := w.Window(9)
	if last[3][0] != 10 || last[6][0] != 0 {
		t.Errorf("block 9 not centred on frame 9: %v", last)
	}

	if _, err := w.Window(10); err == nil {
		t.Error("expected an out-of-range error")
	}
}

func TestWindowerRejectsRagged(t *testing.T) {
	m := features(3, 4)
	m[1] = m[1][:2]
	if _, err := NewWindower(m, 3); err == nil {
		t.Fatal("expected an error for a ragged matrix")
	}
}

// framePredictor lights key k = round(centre value) with probability 0.9
type framePredictor struct {
	calls int
}

func (p *framePredictor) Predict2D(block [][]float64) ([]float64, error) {
	p.calls++
	probs := make([]float64, NumKeys)
	centre := block[len(block)/2][0]
	if centre > 0 {
		probs[int(centre)%NumKeys] = 0.9
	}
	return probs, nil
}

func TestTranscribePoolsAroundOnsets(t *testing.T) {
	w, err := NewWindower(features(20, 4), 7)
	if err != nil {
		t.Fatalf("NewWindower failed: %v", err)
	}

	var reported []int
	pred := &framePredictor{}
	notes, err := Transcribe(context.Background(), w, pred, []int{2, 10, 16}, 0.5, func(done, total int) {
		reported = append(reported, done)
		if total != 20 {
			t.Errorf("total = %d, want 20", total)
		}
	})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if pred.calls != 20 || len(reported) != 20 || reported[19] != 20 {
		t.Errorf("predictor called %d times, progress %v", pred.calls, reported)
	}

	if len(notes) != 3 {
		t.Fatalf("got %d onsets, want 3", len(notes))
	}
	// onset 0 owns frames [0, 6), whose keys are 1..6
	if len(notes[0]) != 6 {
		t.Errorf("onset 0 has %d notes, want 6", len(notes[0]))
	}
	// onset 1 owns [6, 13), onset 2 owns [13, 20)
	if len(notes[1]) != 7 || len(notes[2]) != 7 {
		t.Errorf("onsets 1 and 2 have %d and %d notes, want 7", len(notes[1]), len(notes[2]))
	}
	if notes[2][0].Pitch != 14 || notes[2][0].Velocity != 0.9 {
		t.Errorf("unexpected first note of onset 2: %+v", notes[2][0])
	}
}

func TestTranscribeSingleOnsetOwnsEverything(t *testing.T) {
	w, _ := NewWindower(features(5, 4), 3)
	notes, err := Transcribe(context.Background(), w, &framePredictor{}, []int{2}, 0.5, nil)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if len(notes) != 1 || len(notes[0]) != 5 {
		t.Fatalf("unexpected notes %v", notes)
	}
}

func TestTranscribeHonorsCancellation(t *testing.T) {
	w, _ := NewWindower(features(50, 4), 7)
	ctx, cancel := context.WithCancel(context.Background())

	pred := &framePredictor{}
	_, err := Transcribe(ctx, w, pred, []int{1}, 0.5, func(done, total int) {
		if done == 5 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if pred.calls != 5 {
		t.Errorf("predictor called %d times after cancel, want 5", pred.calls)
	}
}

func TestTranscribeRejectsLateOnset(t *testing.T) {
	w, _ := NewWindower(features(5, 4), 3)
	if _, err := Transcribe(context.Background(), w, &framePredictor{}, []int{7}, 0.5, nil); err == nil {
		t.Fatal("expected an error for an onset past the end")
	}
}

func TestSalienceModel(t *testing.T) {
	const bps = 4
	block := make([][]float64, 7)
	for i := range block {
		block[i] = make([]float64, NumKeys*bps)
	}
	block[3][48*bps] = 60
	block[3][60*bps+1] = 20

	probs, err := NewSalienceModel(bps).Predict2D(block)
	if err != nil {
		t.Fatalf("Predict2D failed: %v", err)
	}
	if probs[48] != 1 {
		t.Errorf("A4 probability = %g, want 1", probs[48])
	}
	if probs[60] < 0.33 || probs[60] > 0.34 {
		t.Errorf("A5 probability = %g, want 1/3", probs[60])
	}
	if probs[0] != 0 {
		t.Errorf("silent key scored %g", probs[0])
	}

	if _, err := NewSalienceModel(bps).Predict2D(nil); err == nil {
		t.Error("expected an error for an empty block")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Threshold = 1
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for threshold 1")
	}
}
