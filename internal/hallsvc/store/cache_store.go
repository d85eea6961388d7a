package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CacheStore is the on-device durable cache of collection snapshots. It is
// written synchronously on every local mutation whether or not the remote
// write succeeds, and read at startup before the remote subscription
// delivers its first snapshot.
type CacheStore struct {
	db *pgxpool.Pool
}

func NewCacheStore(db *pgxpool.Pool) *CacheStore {
	return &CacheStore{db: db}
}

// Migrate creates the cache table if it does not exist yet.
func (c *CacheStore) Migrate(ctx context.Context) error {
	_, err := c.db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS snapshot_cache (
            hall_id    TEXT NOT NULL,
            collection TEXT NOT NULL,
            data       JSONB NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (hall_id, collection)
        );
    `)
	if err != nil {
		return fmt.Errorf("could not migrate snapshot cache: %v", err)
	}
	return nil
}

func (c *CacheStore) Put(ctx context.Context, hallId, collection string, data []byte) error {
	query := `
        INSERT INTO snapshot_cache (hall_id, collection, data, updated_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (hall_id, collection)
        DO UPDATE SET data = EXCLUDED.data, updated_at = now();
    `

	_, err := c.db.Exec(ctx, query, hallId, collection, data)
	if err != nil {
		return fmt.Errorf("could not cache snapshot %s/%s: %v", hallId, collection, err)
	}

	return nil
}

func (c *CacheStore) Get(ctx context.Context, hallId, collection string) ([]byte, error) {
	var data []byte

	err := c.db.QueryRow(ctx, `
        SELECT data
        FROM snapshot_cache
        WHERE hall_id = $1 AND collection = $2
    `, hallId, collection).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read cached snapshot %s/%s: %v", hallId, collection, err)
	}

	return data, nil
}
