// Package store implements the single-slot forecast cache. The slot holds at
// most one forecast.Result; every save replaces it wholesale.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iwvelando/demand-dashboard/internal/forecast"
	"github.com/iwvelando/demand-dashboard/pkg/constants"
	"github.com/iwvelando/demand-dashboard/pkg/validation"
	"go.uber.org/zap"
)

// Store is the forecast cache. Load never returns an error: a missing or
// unreadable slot is reported as absent.
type Store interface {
	Load(ctx context.Context) (*forecast.Result, bool)
	Save(ctx context.Context, result *forecast.Result) error
	Clear(ctx context.Context) error
}

// Options selects and configures a Store backend.
type Options struct {
	Driver      string
	Dir         string
	Key         string
	DatabaseURL string
}

// Open builds the backend named by opts.Driver.
func Open(ctx context.Context, logger *zap.Logger, opts Options) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Key == "" {
		opts.Key = constants.DefaultCacheKey
	}
	if err := validation.ValidateCacheKey(opts.Key); err != nil {
		return nil, err
	}

	switch opts.Driver {
	case "", constants.StoreDriverFile:
		dir := opts.Dir
		if dir == "" {
			dir = constants.DefaultCacheDir
		}
		return NewFileStore(logger, dir, opts.Key)
	case constants.StoreDriverMemory:
		return NewMemoryStore(logger), nil
	case constants.StoreDriverPostgres:
		return NewPostgresStore(ctx, logger, opts.DatabaseURL, opts.Key)
	default:
		return nil, validation.ValidateStoreDriver(opts.Driver)
	}
}

func encode(result *forecast.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("cannot save a nil forecast result")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode forecast result: %w", err)
	}
	return data, nil
}

// decode parses stored bytes. Malformed content is logged and reported as
// absent.
func decode(logger *zap.Logger, op string, data []byte) (*forecast.Result, bool) {
	result, err := forecast.Decode(data)
	if err != nil {
		logger.Warn("discarding unreadable forecast cache",
			zap.String("op", op),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return nil, false
	}
	return result, true
}
