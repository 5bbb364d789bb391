package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cabdispatch/internal/repository"
)

type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps pool. Call Migrate first.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM record_collections WHERE name = $1`, name,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: load %s: %w", name, err)
	}
	return data, nil
}

func (s *Store) Save(ctx context.Context, name string, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO record_collections (name, data, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		name, string(data),
	)
	if err != nil {
		return fmt.Errorf("postgres: save %s: %w", name, err)
	}
	return nil
}

// Update locks the rows for names with SELECT ... FOR UPDATE, in name order so
// concurrent updates over overlapping sets cannot deadlock, and writes fn's
// result in the same transaction.
func (s *Store) Update(ctx context.Context, names []string, fn repository.TxFunc) error {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Rows must exist before they can be locked.
	for _, name := range sorted {
		if _, err := tx.Exec(ctx,
			`INSERT INTO record_collections (name, data) VALUES ($1, NULL) ON CONFLICT (name) DO NOTHING`,
			name,
		); err != nil {
			return fmt.Errorf("postgres: ensure %s: %w", name, err)
		}
	}

	rows, err := tx.Query(ctx,
		`SELECT name, data FROM record_collections WHERE name = ANY($1) ORDER BY name FOR UPDATE`,
		sorted,
	)
	if err != nil {
		return fmt.Errorf("postgres: lock %v: %w", sorted, err)
	}
	current := make(map[string][]byte, len(names))
	for rows.Next() {
		var (
			name string
			data []byte
		)
		if err := rows.Scan(&name, &data); err != nil {
			rows.Close()
			return fmt.Errorf("postgres: scan: %w", err)
		}
		current[name] = data
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres: read %v: %w", sorted, err)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if err := repository.CheckTxResult(names, next); err != nil {
		return err
	}

	for name, data := range next {
		if _, err := tx.Exec(ctx,
			`UPDATE record_collections SET data = $2::jsonb, updated_at = now() WHERE name = $1`,
			name, string(data),
		); err != nil {
			return fmt.Errorf("postgres: write %s: %w", name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
