package core

import (
	"context"
	"fmt"
	"os"

	"stablecore/internal/infra/persistence/postgres"
	"stablecore/internal/infra/persistence/sqlite"
	"stablecore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenStore selects a snapshot sink using environment variables, constructs
// the store on top of it and hydrates from any existing snapshot. Defaults to
// sqlite when unset.
//
//	STABLECORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	STABLECORE_SQLITE_PATH: path to sqlite file (default ./stablecore.db)
//	STABLECORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenStore(ctx context.Context, opts ...StoreOption) (*MemoryStore, error) {
	driver := os.Getenv("STABLECORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	var sink domain.SnapshotSink
	switch StorageDriver(driver) {
	case StorageMemory:
		// No sink: state lives and dies with the process.
	case StorageSQLite:
		s, err := sqlite.NewStore(os.Getenv("STABLECORE_SQLITE_PATH"))
		if err != nil {
			return nil, err
		}
		sink = s
	case StoragePostgres:
		s, err := postgres.NewStore(ctx, os.Getenv("STABLECORE_POSTGRES_DSN"))
		if err != nil {
			return nil, err
		}
		sink = s
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}

	if sink != nil {
		opts = append([]StoreOption{WithSnapshotSink(sink)}, opts...)
	}
	store := NewMemoryStore(opts...)
	if err := store.Hydrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
