package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Storage is a small durable key-value store holding the persisted session.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	// SetAll writes every entry or none of them.
	SetAll(entries map[string]string) error
	Delete(keys ...string) error
}

type MemoryStorage struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *MemoryStorage) SetAll(entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range entries {
		m.entries[k] = v
	}
	return nil
}

func (m *MemoryStorage) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// FileStorage keeps entries in memory and rewrites the whole file on every
// change.
type FileStorage struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]string
}

type persistedFile struct {
	Version int               `json:"version"`
	Entries map[string]string `json:"entries"`
	SavedAt int64             `json:"savedAt"`
}

// OpenFileStorage loads path if it exists. A missing or empty file is an
// empty store; an unreadable one is logged and treated as empty.
func OpenFileStorage(path string, logger *slog.Logger) (*FileStorage, error) {
	if path == "" {
		return nil, errors.New("session storage path is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	fs := &FileStorage{path: path, logger: logger, entries: make(map[string]string)}
	if err := fs.load(); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return nil, err
		}
		logger.Warn("session storage: ignoring unreadable file", "path", path, "err", err)
	}
	return fs, nil
}

func (f *FileStorage) Path() string { return f.path }

func (f *FileStorage) load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var file persistedFile
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	if file.Version != 1 {
		return fmt.Errorf("unsupported session file version %d", file.Version)
	}
	for k, v := range file.Entries {
		f.entries[k] = v
	}
	return nil
}

func (f *FileStorage) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.entries[key]
	return v, ok
}

func (f *FileStorage) Set(key, value string) error {
	return f.SetAll(map[string]string{key: value})
}

// SetAll rewrites the file once. The in-memory entries change only when the
// write succeeds.
func (f *FileStorage) SetAll(entries map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := f.cloneLocked()
	for k, v := range entries {
		next[k] = v
	}
	return f.commitLocked(next)
}

func (f *FileStorage) Delete(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := f.cloneLocked()
	for _, k := range keys {
		delete(next, k)
	}
	return f.commitLocked(next)
}

func (f *FileStorage) cloneLocked() map[string]string {
	next := make(map[string]string, len(f.entries))
	for k, v := range f.entries {
		next[k] = v
	}
	return next
}

func (f *FileStorage) commitLocked(next map[string]string) error {
	if err := f.writeFile(next); err != nil {
		return err
	}
	f.entries = next
	return nil
}

func (f *FileStorage) writeFile(entries map[string]string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("session storage: mkdir %s: %w", dir, err)
	}

	file := persistedFile{Version: 1, Entries: entries, SavedAt: time.Now().UnixMilli()}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("session storage: marshal: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("session storage: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("session storage: chmod temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("session storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("session storage: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("session storage: rename: %w", err)
	}
	return nil
}
