// Package tablestore implements a generic partition/row key entity store on
// top of Postgres. Entities are flat JSON documents addressed by
// (table, partitionKey, rowKey); Merge performs a shallow JSON merge the way
// a table storage "Merge" update does.
package tablestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("entity not found")
	ErrExists   = errors.New("entity already exists")
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const uniqueViolation = "23505"

// Insert writes a new entity and fails with ErrExists if the
// (table, partitionKey, rowKey) triple is already taken.
func (s *Store) Insert(ctx context.Context, table, partitionKey, rowKey string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling entity: %w", err)
	}

	query := `
		INSERT INTO entities (table_name, partition_key, row_key, data)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := s.db.ExecContext(ctx, query, table, partitionKey, rowKey, data); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrExists
		}

		return fmt.Errorf("inserting entity into %s: %w", table, err)
	}

	return nil
}

// Get does a point lookup by full key.
func (s *Store) Get(ctx context.Context, table, partitionKey, rowKey string) ([]byte, error) {
	query := `
		SELECT data FROM entities
		WHERE table_name = $1 AND partition_key = $2 AND row_key = $3
	`

	var data []byte
	if err := s.db.QueryRowContext(ctx, query, table, partitionKey, rowKey).Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("getting entity from %s: %w", table, err)
	}

	return data, nil
}

// GetByRowKey looks an entity up by row key alone, scanning across
// partitions. Returns the first match.
func (s *Store) GetByRowKey(ctx context.Context, table, rowKey string) ([]byte, error) {
	query := `
		SELECT data FROM entities
		WHERE table_name = $1 AND row_key = $2
		ORDER BY partition_key ASC
		LIMIT 1
	`

	var data []byte
	if err := s.db.QueryRowContext(ctx, query, table, rowKey).Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("getting entity from %s: %w", table, err)
	}

	return data, nil
}

// QueryPartition returns every entity in a partition.
func (s *Store) QueryPartition(ctx context.Context, table, partitionKey string) ([][]byte, error) {
	query := `
		SELECT data FROM entities
		WHERE table_name = $1 AND partition_key = $2
		ORDER BY row_key ASC
	`

	return s.queryData(ctx, query, table, partitionKey)
}

// List returns every entity in a logical table.
func (s *Store) List(ctx context.Context, table string) ([][]byte, error) {
	query := `
		SELECT data FROM entities
		WHERE table_name = $1
		ORDER BY partition_key ASC, row_key ASC
	`

	return s.queryData(ctx, query, table)
}

func (s *Store) queryData(ctx context.Context, query string, args ...any) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var docs [][]byte

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}

		docs = append(docs, data)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entities: %w", err)
	}

	return docs, nil
}

// Merge updates an existing entity by shallow-merging doc over the stored
// document. Fails with ErrNotFound if the entity does not exist; there is
// deliberately no upsert.
func (s *Store) Merge(ctx context.Context, table, partitionKey, rowKey string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling entity: %w", err)
	}

	query := `
		UPDATE entities
		SET data = data || $4, updated_at = NOW()
		WHERE table_name = $1 AND partition_key = $2 AND row_key = $3
	`

	res, err := s.db.ExecContext(ctx, query, table, partitionKey, rowKey, data)
	if err != nil {
		return fmt.Errorf("updating entity in %s: %w", table, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating entity in %s: %w", table, err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, table, partitionKey, rowKey string) error {
	query := `
		DELETE FROM entities
		WHERE table_name = $1 AND partition_key = $2 AND row_key = $3
	`

	if _, err := s.db.ExecContext(ctx, query, table, partitionKey, rowKey); err != nil {
		return fmt.Errorf("deleting entity from %s: %w", table, err)
	}

	return nil
}
