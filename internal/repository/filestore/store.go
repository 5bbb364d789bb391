// Package filestore persists each collection as <dir>/<name>.json.
//
// Writes go to a temp file in the same directory and are renamed into place,
// so a crash never leaves a half-written collection. Access is serialized
// inside the process; two processes must not share one directory.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"cabdispatch/internal/repository"
)

type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates dir if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read(name)
}

func (s *Store) Save(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := s.stage(name, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path(name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("filestore: save %s: %w", name, err)
	}
	return nil
}

// Update stages every result as a temp file before renaming any of them. If a
// rename fails part way, collections already renamed are restored to their
// previous contents.
func (s *Store) Update(ctx context.Context, names []string, fn repository.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := make(map[string][]byte, len(names))
	for _, name := range names {
		data, err := s.read(name)
		if err != nil {
			return err
		}
		current[name] = data
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if err := repository.CheckTxResult(names, next); err != nil {
		return err
	}

	staged := make(map[string]string, len(next))
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()
	for name, data := range next {
		tmp, err := s.stage(name, data)
		if err != nil {
			return err
		}
		staged[name] = tmp
	}

	var committed []string
	for name, tmp := range staged {
		if err := os.Rename(tmp, s.path(name)); err != nil {
			s.restore(committed, current)
			return fmt.Errorf("filestore: commit %s: %w", name, err)
		}
		delete(staged, name)
		committed = append(committed, name)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) read(name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", name, err)
	}
	return data, nil
}

// stage writes data, indented when it is valid JSON, to a temp file next to
// the target and returns its path.
func (s *Store) stage(name string, data []byte) (string, error) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err == nil {
		data = pretty.Bytes()
	}

	f, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("filestore: stage %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("filestore: stage %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("filestore: stage %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("filestore: stage %s: %w", name, err)
	}
	return f.Name(), nil
}

func (s *Store) restore(names []string, previous map[string][]byte) {
	for _, name := range names {
		if previous[name] == nil {
			os.Remove(s.path(name))
			continue
		}
		tmp, err := s.stage(name, previous[name])
		if err != nil {
			continue
		}
		if err := os.Rename(tmp, s.path(name)); err != nil {
			os.Remove(tmp)
		}
	}
}
