package storage

import (
	"fmt"

	"github.com/hammamikhairi/ottofry/internal/domain"
	"github.com/hammamikhairi/ottofry/internal/logger"
)

// Supported backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendYAML   = "yaml"
)

// Open returns the preference store for backend. path is a directory for
// badger and a file for yaml; memory ignores it.
func Open(backend, path string, log *logger.Logger) (domain.PreferenceStore, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(log), nil
	case BackendBadger:
		s, err := OpenBadgerStore(path, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendYAML, "":
		s, err := OpenYAMLStore(path, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown preference backend %q", backend)
	}
}
