// Package credential stores the single API key the user sets from the menu.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Key is the namespace key the API key is stored under.
const Key = "OpenAI_API_Key"

// Store gets and sets the stored API key.
type Store interface {
	Get() (string, error)
	Set(value string) error
}

// FileStore keeps credentials in a YAML map on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Get returns the stored key, or "" when nothing has been stored yet.
func (s *FileStore) Get() (string, error) {
	values, err := s.read()
	if err != nil {
		return "", err
	}
	return values[Key], nil
}

// Set stores value under Key, keeping any other entries in the file.
// An empty value removes the key.
func (s *FileStore) Set(value string) error {
	values, err := s.read()
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		delete(values, Key)
	} else {
		values[Key] = value
	}

	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("credential: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("credential: create dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("credential: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("credential: replace: %w", err)
	}
	return nil
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("credential: read %s: %w", s.path, err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("credential: decode %s: %w", s.path, err)
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

// Holder is the in-memory copy of the key, read by the event loop and
// replaced from the menu.
type Holder struct {
	v atomic.Value
}

// NewHolder returns a holder containing initial.
func NewHolder(initial string) *Holder {
	h := &Holder{}
	h.Set(initial)
	return h
}

func (h *Holder) Get() string {
	s, _ := h.v.Load().(string)
	return s
}

func (h *Holder) Set(value string) { h.v.Store(strings.TrimSpace(value)) }

// Load resolves the startup credential: a configured key (key file or
// environment) wins over the stored one.
func Load(store Store, configured string) (string, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured, nil
	}
	return store.Get()
}
