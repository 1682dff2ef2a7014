package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// StateVersion is the current on-disk layout version of the state file.
const StateVersion = 1

// stateFile is the YAML document persisted by FileStore.
type stateFile struct {
	StateVersion int               `yaml:"stateVersion"`
	SavedAt      time.Time         `yaml:"savedAt"`
	Values       map[string]string `yaml:"values"`
}

// FileStore is a Store backed by a single YAML file. Every operation reads
// the file afresh so several processes observe each other's writes; writes
// replace the file atomically with 0600 permissions.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store at path. An empty path selects
// DefaultStatePath(); a leading ~ is expanded to the home directory.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		path = DefaultStatePath()
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("state: expand path: %w", err)
	}
	return &FileStore{path: filepath.Clean(expanded)}, nil
}

// Path returns the resolved file location.
func (s *FileStore) Path() string {
	return s.path
}

// Get implements Store.
func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := st.Values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements Store.
func (s *FileStore) Set(key, value string) error {
	if key == "" {
		return errors.New("state: key cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	st.Values[key] = value
	return s.save(st)
}

// Delete implements Store.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := st.Values[key]; !ok {
		return nil
	}
	delete(st.Values, key)
	return s.save(st)
}

// Keys implements Store.
func (s *FileStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return sortedKeys(st.Values), nil
}

func (s *FileStore) load() (*stateFile, error) {
	// #nosec G304 path is chosen by the user through configuration
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &stateFile{StateVersion: StateVersion, Values: map[string]string{}}, nil
		}
		return nil, fmt.Errorf("state: read failed: %w", err)
	}

	var st stateFile
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("state: parse failed: %w", err)
	}
	if st.StateVersion == 0 {
		st.StateVersion = StateVersion
	}
	if st.StateVersion > StateVersion {
		return nil, fmt.Errorf("state: unsupported state version %d", st.StateVersion)
	}
	if st.Values == nil {
		st.Values = map[string]string{}
	}
	return &st, nil
}

func (s *FileStore) save(st *stateFile) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("state: mkdir failed: %w", err)
	}
	st.SavedAt = time.Now().UTC()

	out, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("state: marshal failed: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state.tmp-*")
	if err != nil {
		return fmt.Errorf("state: temp create failed: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(out); err != nil {
		return fmt.Errorf("state: temp write failed: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		return fmt.Errorf("state: chmod failed: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("state: sync failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("state: close failed: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("state: atomic rename failed: %w", err)
	}
	return nil
}

// DefaultStatePath returns the default state file location.
func DefaultStatePath() string {
	return filepath.Join(userConfigDir(), "gitexplorer", "state.yaml")
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return dir
	}
	if home, err := homedir.Dir(); err == nil && home != "" {
		return filepath.Join(home, ".config")
	}
	return "."
}
