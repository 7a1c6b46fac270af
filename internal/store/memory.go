package store

import (
	"context"
	"sync"

	"github.com/iwvelando/demand-dashboard/internal/forecast"
	"go.uber.org/zap"
)

// MemoryStore keeps the slot in process memory. The encoded form is stored so
// callers never share a Result with the cache.
type MemoryStore struct {
	mu     sync.RWMutex
	logger *zap.Logger
	data   []byte
}

// Verify interface compliance
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory slot.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{logger: logger}
}

// Load returns the cached result if one is present.
func (s *MemoryStore) Load(_ context.Context) (*forecast.Result, bool) {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()

	if data == nil {
		return nil, false
	}
	return decode(s.logger, "store.MemoryStore.Load", data)
}

// Save replaces the slot.
func (s *MemoryStore) Save(_ context.Context, result *forecast.Result) error {
	data, err := encode(result)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// Clear empties the slot.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	return nil
}

// SetRaw places arbitrary bytes in the slot, bypassing encoding.
func (s *MemoryStore) SetRaw(data []byte) {
	s.mu.Lock()
	s.data = append([]byte(nil), data...)
	s.mu.Unlock()
}
