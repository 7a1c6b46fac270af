package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/iwvelando/demand-dashboard/internal/forecast"
	"go.uber.org/zap"
)

// FileStore keeps the slot as one JSON file named after the cache key.
type FileStore struct {
	mu     sync.Mutex
	logger *zap.Logger
	path   string
}

// Verify interface compliance
var _ Store = (*FileStore)(nil)

// NewFileStore prepares dir and returns a store for <dir>/<key>.json.
func NewFileStore(logger *zap.Logger, dir, key string) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &FileStore{
		logger: logger,
		path:   filepath.Join(dir, key+".json"),
	}, nil
}

// Path returns the location of the slot file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the slot file. A missing, unreadable or malformed file is
// reported as absent.
func (s *FileStore) Load(_ context.Context) (*forecast.Result, bool) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()

	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to read forecast cache",
				zap.String("op", "store.FileStore.Load"),
				zap.String("path", s.path),
				zap.Error(err),
			)
		}
		return nil, false
	}
	return decode(s.logger, "store.FileStore.Load", data)
}

// Save writes the slot through a temporary file and a rename so a reader never
// sees a partial write.
func (s *FileStore) Save(_ context.Context, result *forecast.Result) error {
	data, err := encode(result)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write forecast cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close forecast cache: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace forecast cache: %w", err)
	}

	s.logger.Debug("forecast cache saved",
		zap.String("op", "store.FileStore.Save"),
		zap.String("path", s.path),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Clear removes the slot file. Clearing an empty slot is not an error.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove forecast cache: %w", err)
	}
	return nil
}
