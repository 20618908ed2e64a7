package token

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileName is the fixed name of the persisted credential entry.
const FileName = "learnquest_token"

// ErrNotFound is returned by Load when no credential is persisted.
// Absence means logged out.
var ErrNotFound = errors.New("token: not found")

// Store persists the raw bearer token between runs. A Store holds at most
// one credential.
type Store interface {
	// Load returns the persisted token, or ErrNotFound.
	Load() (string, error)

	// Save overwrites the persisted token.
	Save(token string) error

	// Clear removes the persisted token. Clearing an empty store is not
	// an error.
	Clear() error
}

// FileStore keeps the token in a single file under the given directory.
type FileStore struct {
	path string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, FileName)}
}

// DefaultDir returns the per-user config directory for the client.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("token: resolve config dir: %w", err)
	}

	return filepath.Join(base, "learnquest"), nil
}

func (s *FileStore) Load() (string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("token: read %s: %w", s.path, err)
	}

	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", ErrNotFound
	}

	return tok, nil
}

func (s *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("token: create dir: %w", err)
	}

	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("token: write %s: %w", s.path, err)
	}

	return nil
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("token: remove %s: %w", s.path, err)
	}

	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu  sync.Mutex
	tok string
	set bool
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.set {
		return "", ErrNotFound
	}

	return s.tok, nil
}

func (s *MemStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tok, s.set = token, true
	return nil
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tok, s.set = "", false
	return nil
}
