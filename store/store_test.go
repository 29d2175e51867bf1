package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-piano/algorithms/tonal"
	"github.com/RyanBlaney/sonido-piano/logging"
	"github.com/RyanBlaney/sonido-piano/pipeline"
)

func init() {
	logging.SetGlobalLogger(nil)
}

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "analyses.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSaveAndLatest(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	first := pipeline.Summary{Source: "song.wav", Key: "Am", Mode: tonal.KeyModeMinor, Tempo: 96, Duration: 3 * time.Second}
	second := pipeline.Summary{Source: "song.wav", Key: "C", Tempo: 120, Scale: []string{"C", "D"}}

	if _, err := s.Save(ctx, first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	id, err := s.Save(ctx, second)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id == "" {
		t.Fatal("Save returned an empty id")
	}

	got, err := s.Latest(ctx, "song.wav")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if got.ID != id {
		t.Errorf("Latest id = %s, want %s", got.ID, id)
	}
	if got.Summary.Key != "C" || got.Summary.Tempo != 120 || len(got.Summary.Scale) != 2 {
		t.Errorf("Latest summary = %+v", got.Summary)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not restored")
	}
}

func TestSummaryRoundTripKeepsMode(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, pipeline.Summary{Source: "minor.wav", Key: "F#m", Mode: tonal.KeyModeMinor}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := s.Latest(ctx, "minor.wav")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if got.Summary.Mode != tonal.KeyModeMinor {
		t.Errorf("mode = %v, want minor", got.Summary.Mode)
	}
}

func TestLatestNotFound(t *testing.T) {
	s, _ := openTemp(t)

	_, err := s.Latest(context.Background(), "missing.wav")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	for _, source := range []string{"a.wav", "b.wav", "c.wav"} {
		if _, err := s.Save(ctx, pipeline.Summary{Source: source}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List(0) returned %d records, want 3", len(all))
	}
	if all[0].Summary.Source != "c.wav" || all[2].Summary.Source != "a.wav" {
		t.Errorf("order = %s, %s, %s", all[0].Summary.Source, all[1].Summary.Source, all[2].Summary.Source)
	}

	two, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(two) != 2 {
		t.Errorf("List(2) returned %d records", len(two))
	}
}

func TestReopenRunsMigrationsAgain(t *testing.T) {
	s, path := openTemp(t)
	if _, err := s.Save(context.Background(), pipeline.Summary{Source: "kept.wav"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	s.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.Latest(context.Background(), "kept.wav"); err != nil {
		t.Errorf("record lost across reopen: %v", err)
	}
}
