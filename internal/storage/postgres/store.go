// Package postgres stores documents as JSONB rows in a single records table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/scopewise/estimation-backend/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
    collection TEXT        NOT NULL,
    id         TEXT        NOT NULL,
    data       JSONB       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS records_data_gin ON records USING GIN (data);
`

// Store implements storage.Store on top of database/sql.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the records table when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate records: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, collection string, rec storage.Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}

	id := uuid.New().String()
	const q = `INSERT INTO records (collection, id, data) VALUES ($1, $2, $3::jsonb)`
	if _, err := s.db.ExecContext(ctx, q, collection, id, string(data)); err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (*storage.Document, error) {
	const q = `SELECT data FROM records WHERE collection = $1 AND id = $2`

	var raw []byte
	err := s.db.QueryRowContext(ctx, q, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}

	rec, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return &storage.Document{ID: id, Data: rec}, nil
}

func (s *Store) GetAll(ctx context.Context, collection string) ([]storage.Document, error) {
	const q = `
SELECT id, data FROM records
WHERE collection = $1
ORDER BY created_at, id`
	return s.query(ctx, q, collection)
}

func (s *Store) QueryByField(ctx context.Context, collection, field string, value any) ([]storage.Document, error) {
	want, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query value: %w", err)
	}

	const q = `
SELECT id, data FROM records
WHERE collection = $1 AND data -> $2 = $3::jsonb
ORDER BY created_at, id`
	return s.query(ctx, q, collection, field, string(want))
}

func (s *Store) QueryByFieldIn(ctx context.Context, collection, field string, values []string) ([]storage.Document, error) {
	if len(values) == 0 {
		return nil, nil
	}

	const q = `
SELECT id, data FROM records
WHERE collection = $1 AND data ->> $2 = ANY($3)
ORDER BY created_at, id`
	return s.query(ctx, q, collection, field, pq.StringArray(values))
}

func (s *Store) Update(ctx context.Context, collection, id string, partial storage.Record) error {
	patch, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	const q = `UPDATE records SET data = data || $3::jsonb WHERE collection = $1 AND id = $2`
	res, err := s.db.ExecContext(ctx, q, collection, id, string(patch))
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	return requireRow(res)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	const q = `DELETE FROM records WHERE collection = $1 AND id = $2`
	res, err := s.db.ExecContext(ctx, q, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return requireRow(res)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]storage.Document, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	out := make([]storage.Document, 0, 16)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		rec, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, storage.Document{ID: id, Data: rec})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func decode(raw []byte) (storage.Record, error) {
	var rec storage.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return rec, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
