package memory

import (
	"context"
	"errors"
	"testing"
)

func TestStore_LoadMissingCollection(t *testing.T) {
	s := NewStore()

	data, err := s.Load(context.Background(), "cabs")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if data != nil {
		t.Errorf("Expected nil for unwritten collection, got %q", data)
	}
}

func TestStore_SaveCopiesInput(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	buf := []byte(`[{"id":1}]`)
	_ = s.Save(ctx, "cabs", buf)
	buf[2] = 'X'

	data, _ := s.Load(ctx, "cabs")
	if string(data) != `[{"id":1}]` {
		t.Errorf("Store aliased caller buffer: %q", data)
	}
}

func TestStore_UpdateIsAllOrNothing(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_ = s.Save(ctx, "cabs", []byte(`[1]`))
	_ = s.Save(ctx, "trips", []byte(`[2]`))

	boom := errors.New("boom")
	err := s.Update(ctx, []string{"cabs", "trips"}, func(cur map[string][]byte) (map[string][]byte, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	err = s.Update(ctx, []string{"cabs", "trips"}, func(cur map[string][]byte) (map[string][]byte, error) {
		if string(cur["cabs"]) != `[1]` || string(cur["trips"]) != `[2]` {
			t.Errorf("Unexpected current values: %q %q", cur["cabs"], cur["trips"])
		}
		return map[string][]byte{"cabs": []byte(`[10]`), "trips": []byte(`[20]`)}, nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	cabs, _ := s.Load(ctx, "cabs")
	trips, _ := s.Load(ctx, "trips")
	if string(cabs) != `[10]` || string(trips) != `[20]` {
		t.Errorf("Expected both collections replaced, got %q %q", cabs, trips)
	}
}

func TestStore_CancelledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Load(ctx, "cabs"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
