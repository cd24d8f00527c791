package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/ottofry/internal/domain"
	"github.com/hammamikhairi/ottofry/internal/logger"
)

var _ domain.PreferenceStore = (*YAMLStore)(nil)

// YAMLStore keeps preferences as a flat YAML mapping in a single file. The
// whole file is rewritten atomically on every Set.
type YAMLStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
	log    *logger.Logger
}

// OpenYAMLStore loads path if it exists. A missing file is an empty store.
func OpenYAMLStore(path string, log *logger.Logger) (*YAMLStore, error) {
	s := &YAMLStore{path: path, values: make(map[string]string), log: log}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug("preference file %s does not exist yet", path)
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("reading preference file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parsing preference file %s: %w", path, err)
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	return s, nil
}

// Get returns the value stored under key.
func (s *YAMLStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

// Set stores value under key and persists the file.
func (s *YAMLStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	s.values[key] = value
	if err := s.flushLocked(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	s.log.Debug("saved preference %s=%q to %s", key, value, s.path)
	return nil
}

// Close is a no-op; every Set is already durable.
func (s *YAMLStore) Close() error { return nil }

func (s *YAMLStore) flushLocked() error {
	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating preference dir: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending preference file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			s.log.Debug("cleanup pending preference file: %v", err)
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace preference file: %w", err)
	}
	return nil
}
