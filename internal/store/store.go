package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"caesarwheel/internal/cipher"
)

// Selection is the persisted wheel state.
type Selection struct {
	Shift     int         `json:"shift"`
	Mode      cipher.Mode `json:"mode"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// FileStore persists a Selection at a fixed path.
type FileStore struct {
	mu   sync.Mutex
	path string
	cur  Selection
	now  func() time.Time
}

// Open loads path if it exists. ok reports whether a previous selection was found.
func Open(path string) (s *FileStore, ok bool, err error) {
	if path == "" {
		return nil, false, errors.New("store path is empty")
	}
	s = &FileStore{path: path, now: time.Now}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read selection: %w", err)
	}
	if err := json.Unmarshal(b, &s.cur); err != nil {
		return nil, false, fmt.Errorf("decode selection %s: %w", path, err)
	}
	return s, true, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Selection returns the last loaded or saved selection.
func (s *FileStore) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// SaveShift records a newly committed shift, keeping the stored mode.
// Its signature matches a shift-change hook.
func (s *FileStore) SaveShift(shift int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cur
	next.Shift = shift
	return s.writeLocked(next)
}

// Save records shift and mode together.
func (s *FileStore) Save(sel Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(sel)
}

func (s *FileStore) writeLocked(sel Selection) error {
	sel.UpdatedAt = s.now().UTC()
	b, err := json.MarshalIndent(sel, "", "  ")
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	if err := writeFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write selection: %w", err)
	}
	s.cur = sel
	return nil
}

// writeFile writes bytes via a temp file, then atomically replaces the target.
func writeFile(path string, b []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	// Best-effort cleanup if anything fails before rename.
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
