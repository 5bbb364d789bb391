// Package repository is the fleet state layer: typed CRUD over the five record
// collections, built on a pluggable RecordStore.
//
// Reads and single-record writes are fail-soft. Errors from the store or from
// decoding are logged with the operation and collection and reported to the
// caller as an empty result or false. The Apply helpers used by the dispatch
// engine return errors instead, because the engine has to tell a missing
// record apart from a failed commit.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateID    = errors.New("record id already exists")
)

// Record is implemented by every persisted entity pointer type.
type Record interface {
	RecordID() int
	SetRecordID(id int)
}

// Collection is the typed view of one named collection. E is a pointer type
// such as *entities.Cab.
type Collection[E Record] struct {
	store  RecordStore
	name   string
	logger *slog.Logger
}

// NewCollection binds the records stored under name.
func NewCollection[E Record](store RecordStore, name string, logger *slog.Logger) *Collection[E] {
	return &Collection[E]{
		store:  store,
		name:   name,
		logger: logger.With("collection", name),
	}
}

func (c *Collection[E]) Name() string {
	return c.name
}

// GetAll returns every record in storage order, or an empty slice if the
// collection cannot be read.
func (c *Collection[E]) GetAll(ctx context.Context) []E {
	data, err := c.store.Load(ctx, c.name)
	if err != nil {
		c.logger.ErrorContext(ctx, "load_failed", "op", "get_all", "error", err)
		return []E{}
	}
	records, err := decodeRecords[E](data)
	if err != nil {
		c.logger.ErrorContext(ctx, "decode_failed", "op", "get_all", "error", err)
		return []E{}
	}
	return records
}

// GetByID scans GetAll for id.
func (c *Collection[E]) GetByID(ctx context.Context, id int) (E, bool) {
	for _, rec := range c.GetAll(ctx) {
		if rec.RecordID() == id {
			return rec, true
		}
	}
	var zero E
	return zero, false
}

// Add appends e. A zero id is replaced by max(existing ids)+1, or 1 for an
// empty collection; the assigned id is written back into e.
func (c *Collection[E]) Add(ctx context.Context, e E) bool {
	assign := e.RecordID() == 0

	err := c.store.Update(ctx, []string{c.name}, func(current map[string][]byte) (map[string][]byte, error) {
		records, err := decodeRecords[E](current[c.name])
		if err != nil {
			return nil, err
		}
		if assign {
			e.SetRecordID(nextID(records))
		} else if indexOf(records, e.RecordID()) >= 0 {
			return nil, ErrDuplicateID
		}
		return c.encode(append(records, e))
	})
	if err != nil {
		c.logFailure(ctx, "add", e.RecordID(), err)
		return false
	}
	return true
}

// Update replaces the record with e's id. It returns false if there is none.
func (c *Collection[E]) Update(ctx context.Context, e E) bool {
	err := c.store.Update(ctx, []string{c.name}, func(current map[string][]byte) (map[string][]byte, error) {
		records, err := decodeRecords[E](current[c.name])
		if err != nil {
			return nil, err
		}
		idx := indexOf(records, e.RecordID())
		if idx < 0 {
			return nil, ErrRecordNotFound
		}
		records[idx] = e
		return c.encode(records)
	})
	if err != nil {
		c.logFailure(ctx, "update", e.RecordID(), err)
		return false
	}
	return true
}

// Remove deletes the record with id. It returns false if there is none.
func (c *Collection[E]) Remove(ctx context.Context, id int) bool {
	err := c.store.Update(ctx, []string{c.name}, func(current map[string][]byte) (map[string][]byte, error) {
		records, err := decodeRecords[E](current[c.name])
		if err != nil {
			return nil, err
		}
		idx := indexOf(records, id)
		if idx < 0 {
			return nil, ErrRecordNotFound
		}
		records = append(records[:idx], records[idx+1:]...)
		return c.encode(records)
	})
	if err != nil {
		c.logFailure(ctx, "remove", id, err)
		return false
	}
	return true
}

// Apply loads record id inside a store transaction, lets fn mutate it and
// writes it back. Nothing is written if fn returns an error, which is passed
// through unchanged.
func (c *Collection[E]) Apply(ctx context.Context, id int, fn func(E) error) (E, error) {
	var result E
	err := c.store.Update(ctx, []string{c.name}, func(current map[string][]byte) (map[string][]byte, error) {
		records, err := decodeRecords[E](current[c.name])
		if err != nil {
			return nil, err
		}
		idx := indexOf(records, id)
		if idx < 0 {
			return nil, ErrRecordNotFound
		}
		if err := fn(records[idx]); err != nil {
			return nil, err
		}
		result = records[idx]
		return c.encode(records)
	})
	if err != nil {
		var zero E
		return zero, err
	}
	return result, nil
}

func (c *Collection[E]) encode(records []E) (map[string][]byte, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.name, err)
	}
	return map[string][]byte{c.name: data}, nil
}

func (c *Collection[E]) logFailure(ctx context.Context, op string, id int, err error) {
	if errors.Is(err, ErrRecordNotFound) || errors.Is(err, ErrDuplicateID) {
		c.logger.WarnContext(ctx, "record_rejected", "op", op, "id", id, "error", err)
		return
	}
	c.logger.ErrorContext(ctx, "write_failed", "op", op, "id", id, "error", err)
}

// decodeRecords parses a serialized collection. Empty input is an empty
// collection, and null entries are skipped.
func decodeRecords[E Record](data []byte) ([]E, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []E{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}

	records := make([]E, 0, len(raw))
	for _, item := range raw {
		if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
			continue
		}
		var rec E
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func nextID[E Record](records []E) int {
	maxID := 0
	for _, rec := range records {
		if rec.RecordID() > maxID {
			maxID = rec.RecordID()
		}
	}
	return maxID + 1
}

func indexOf[E Record](records []E, id int) int {
	for i, rec := range records {
		if rec.RecordID() == id {
			return i
		}
	}
	return -1
}
