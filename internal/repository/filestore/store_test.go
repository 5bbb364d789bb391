package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cabdispatch/internal/repository"
)

func setupStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return s, dir
}

func TestStore_WritesOneFilePerCollection(t *testing.T) {
	s, dir := setupStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "cabs", []byte(`[{"id":1}]`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "cabs.json"))
	if err != nil {
		t.Fatalf("Expected cabs.json on disk: %v", err)
	}
	if !strings.Contains(string(raw), "\n") {
		t.Errorf("Expected indented JSON, got %q", raw)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("Temp file left behind: %s", e.Name())
		}
	}
}

func TestStore_LoadMissingIsEmpty(t *testing.T) {
	s, _ := setupStore(t)

	data, err := s.Load(context.Background(), "trips")
	if err != nil || data != nil {
		t.Errorf("Expected nil, nil for missing file, got %q, %v", data, err)
	}
}

func TestStore_UpdateCommitsAllCollections(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	err := s.Update(ctx, []string{"cabs", "trips"}, func(cur map[string][]byte) (map[string][]byte, error) {
		if cur["cabs"] != nil || cur["trips"] != nil {
			t.Errorf("Expected empty collections, got %v", cur)
		}
		return map[string][]byte{"cabs": []byte(`[1]`), "trips": []byte(`[2]`)}, nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	for name, want := range map[string]string{"cabs": "[1]", "trips": "[2]"} {
		got, _ := s.Load(ctx, name)
		if strings.Join(strings.Fields(string(got)), "") != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestStore_UpdateRejectsUnrequestedCollection(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	err := s.Update(ctx, []string{"cabs"}, func(cur map[string][]byte) (map[string][]byte, error) {
		return map[string][]byte{"cabs": []byte(`[1]`), "cars": []byte(`[1]`)}, nil
	})
	if !errors.Is(err, repository.ErrUnexpectedCollection) {
		t.Fatalf("Expected ErrUnexpectedCollection, got %v", err)
	}
	if data, _ := s.Load(ctx, "cabs"); data != nil {
		t.Errorf("Expected nothing written, got %q", data)
	}
}

func TestStore_RestoreRollsBackCommitted(t *testing.T) {
	s, dir := setupStore(t)
	ctx := context.Background()
	_ = s.Save(ctx, "cabs", []byte(`[1]`))
	_ = s.Save(ctx, "trips", []byte(`[2]`))

	// Simulate a commit where cabs was renamed and trips failed.
	_ = s.Save(ctx, "cabs", []byte(`[99]`))
	s.restore([]string{"cabs"}, map[string][]byte{"cabs": []byte(`[1]`)})

	got, _ := s.Load(ctx, "cabs")
	if strings.Join(strings.Fields(string(got)), "") != "[1]" {
		t.Errorf("Expected cabs restored, got %q", got)
	}

	s.restore([]string{"cars"}, map[string][]byte{"cars": nil})
	if _, err := os.Stat(filepath.Join(dir, "cars.json")); !os.IsNotExist(err) {
		t.Errorf("Expected cars.json removed, stat err = %v", err)
	}
}
