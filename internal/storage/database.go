package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wsmontes/linkchart/migrations"
	"github.com/wsmontes/linkchart/pkg/leaselock"
	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/store"
	pgstore "github.com/wsmontes/linkchart/pkg/store/pgx"
)

// Database bundles the graph store with the lease locks guarding it.
// Locks is nil for the in-memory store.
type Database struct {
	Store store.GraphStorage
	Locks *leaselock.Client

	close func()
}

// OpenDatabase migrates and connects to PostgreSQL at databaseURL. An empty
// URL falls back to an in-memory store that lives as long as the process.
func OpenDatabase(ctx context.Context, databaseURL string) (*Database, error) {
	if databaseURL == "" {
		logger.Warn("[Store] DATABASE_URL not set, graphs are kept in memory")
		return &Database{Store: store.NewMemoryStorage(), close: func() {}}, nil
	}

	if err := migrations.Up(databaseURL); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Database{
		Store: pgstore.NewGraphDBStorageWithConnection(pool),
		Locks: leaselock.New(pool),
		close: pool.Close,
	}, nil
}

// Locker returns Locks as an interface value, nil when there are none.
func (d *Database) Locker() leaselock.Locker {
	if d.Locks == nil {
		return nil
	}
	return d.Locks
}

func (d *Database) Close() {
	d.close()
}
