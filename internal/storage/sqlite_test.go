package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("expected at least one migration")
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("versions not ascending: %v", versions)
		}
	}
}

func TestSaveAndGetInteraction(t *testing.T) {
	s := openTestStore(t)

	in := Interaction{
		ID:        "turn-1",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		UserText:  "weather in delhi",
		Reply:     "sunny, 34C",
		Route:     "search",
		LatencyMs: 240,
	}
	if err := s.SaveInteraction(in); err != nil {
		t.Fatalf("SaveInteraction: %v", err)
	}

	got, err := s.GetInteraction("turn-1")
	if err != nil {
		t.Fatalf("GetInteraction: %v", err)
	}
	if got.UserText != in.UserText || got.Route != in.Route || got.LatencyMs != in.LatencyMs {
		t.Errorf("got %+v, want %+v", got, in)
	}
	if !got.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("created_at mismatch: %v vs %v", got.CreatedAt, in.CreatedAt)
	}
}

func TestGetInteraction_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetInteraction("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetRecentInteractions(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		err := s.SaveInteraction(Interaction{
			ID:        fmt.Sprintf("turn-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UserText:  fmt.Sprintf("u%d", i),
			Reply:     "r",
			Route:     "model",
		})
		if err != nil {
			t.Fatalf("SaveInteraction %d: %v", i, err)
		}
	}

	got, err := s.GetRecentInteractions(3)
	if err != nil {
		t.Fatalf("GetRecentInteractions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 interactions, got %d", len(got))
	}
	if got[0].ID != "turn-4" {
		t.Errorf("expected newest first, got %s", got[0].ID)
	}
}

func TestNotes(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		err := s.SaveNote(Note{
			ID:        fmt.Sprintf("note-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Source:    "cli",
			Content:   fmt.Sprintf("note body %d", i),
		})
		if err != nil {
			t.Fatalf("SaveNote %d: %v", i, err)
		}
	}

	notes, err := s.ListNotes(10)
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if len(notes) != 3 || notes[0].ID != "note-2" {
		t.Errorf("expected 3 notes newest first, got %+v", notes)
	}

	contents, err := s.RecentNoteContents(2)
	if err != nil {
		t.Fatalf("RecentNoteContents: %v", err)
	}
	if len(contents) != 2 || contents[0] != "note body 2" {
		t.Errorf("unexpected contents %v", contents)
	}
}
