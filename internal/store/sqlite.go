package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"testlab/internal/db"
	"testlab/internal/migrate"
)

// SQLiteBackend stores each collection as one row of the collections table.
// The schema is created by the migrate package.
type SQLiteBackend struct {
	DB  *sql.DB
	Now func() time.Time
}

func (b SQLiteBackend) Load(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := b.DB.QueryRowContext(ctx, `SELECT payload FROM collections WHERE key=?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(payload), nil
}

func (b SQLiteBackend) Save(ctx context.Context, key string, data []byte) error {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	_, err := b.DB.ExecContext(ctx, `INSERT INTO collections(key,payload,updated_at) VALUES (?,?,?)
ON CONFLICT(key) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
		key, string(data), now().UTC().Format(time.RFC3339))
	return err
}

func (b SQLiteBackend) Close() error { return b.DB.Close() }

// OpenSQLite opens the workspace database and applies migrations.
func OpenSQLite(ctx context.Context, cfg db.Config) (SQLiteBackend, error) {
	conn, err := db.Open(cfg)
	if err != nil {
		return SQLiteBackend{}, err
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return SQLiteBackend{}, fmt.Errorf("migrate: %w", err)
	}
	return SQLiteBackend{DB: conn}, nil
}
