package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Open creates a store for the configured driver. For the file driver
// path is a directory, for sqlite the database lives at path/state.db.
func Open(ctx context.Context, driver, path string) (Store, error) {
	switch driver {
	case DriverFile, "":
		return NewFileStore(path)
	case DriverSQLite:
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, errors.Wrapf(err, "failed to create store directory %q", path)
		}
		return NewSQLiteStore(ctx, filepath.Join(path, "state.db"))
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errors.Errorf("unknown store driver %q", driver)
	}
}
