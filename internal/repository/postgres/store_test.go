package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
)

// setupStore needs a disposable database; the tests are skipped unless
// CABDISPATCH_TEST_PG_DSN is set.
func setupStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("CABDISPATCH_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("CABDISPATCH_TEST_PG_DSN not set")
	}
	ctx := context.Background()

	pool, err := NewPool(ctx, dsn, 4)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM record_collections`); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	t.Cleanup(pool.Close)
	return NewStore(pool)
}

func jsonEqual(t *testing.T, got []byte, want string) bool {
	t.Helper()
	var a, b any
	if err := json.Unmarshal(got, &a); err != nil {
		return false
	}
	_ = json.Unmarshal([]byte(want), &b)
	ga, _ := json.Marshal(a)
	gb, _ := json.Marshal(b)
	return string(ga) == string(gb)
}

func TestStore_SaveAndLoad(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if data, err := s.Load(ctx, "cabs"); err != nil || data != nil {
		t.Fatalf("Expected nil, nil, got %q, %v", data, err)
	}
	if err := s.Save(ctx, "cabs", []byte(`[{"id":1}]`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := s.Load(ctx, "cabs")
	if err != nil || !jsonEqual(t, data, `[{"id":1}]`) {
		t.Errorf("Unexpected load: %q, %v", data, err)
	}
}

func TestStore_UpdateIsAtomic(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	_ = s.Save(ctx, "cabs", []byte(`[1]`))

	boom := errors.New("boom")
	err := s.Update(ctx, []string{"cabs", "trips"}, func(map[string][]byte) (map[string][]byte, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	err = s.Update(ctx, []string{"trips", "cabs"}, func(cur map[string][]byte) (map[string][]byte, error) {
		if cur["trips"] != nil {
			t.Errorf("Expected trips nil, got %q", cur["trips"])
		}
		return map[string][]byte{"cabs": []byte(`[2]`), "trips": []byte(`[3]`)}, nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	cabs, _ := s.Load(ctx, "cabs")
	trips, _ := s.Load(ctx, "trips")
	if !jsonEqual(t, cabs, `[2]`) || !jsonEqual(t, trips, `[3]`) {
		t.Errorf("Expected [2] and [3], got %q and %q", cabs, trips)
	}
}
