// Package sqlite stores documents as JSON rows in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/event-roster/internal/persistence"
)

// Store implements persistence.Store on a single documents table keyed by
// (collection, doc_key).
type Store struct {
	pool   *ConnectionPool
	mapper ErrorMapper
	retry  RetryConfig
	now    func() time.Time
}

var _ persistence.Store = (*Store)(nil)

// Open connects to the database at dsn. Call Migrate before use.
func Open(dsn string) (*Store, error) {
	return OpenWithConfig(DefaultConfig(dsn))
}

// OpenWithConfig connects using explicit connection settings.
func OpenWithConfig(config Config) (*Store, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, retry: DefaultRetryConfig(), now: time.Now}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Get returns the document stored under (collection, key).
func (s *Store) Get(ctx context.Context, collection, key string) (persistence.Document, error) {
	var body string
	err := s.pool.DB().QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND doc_key = ?`,
		collection, key,
	).Scan(&body)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	return decodeBody(body)
}

// Put replaces the document stored under (collection, key).
func (s *Store) Put(ctx context.Context, collection, key string, doc persistence.Document) error {
	if err := persistence.ValidateRef(collection, key); err != nil {
		return err
	}
	body, err := encodeBody(doc)
	if err != nil {
		return err
	}
	return s.write(ctx, func(tx *sql.Tx) error {
		return s.upsertTx(ctx, tx, collection, key, body)
	})
}

// Merge overwrites the supplied top-level fields inside one transaction.
func (s *Store) Merge(ctx context.Context, collection, key string, fields persistence.Document) error {
	if err := persistence.ValidateRef(collection, key); err != nil {
		return err
	}
	normalized, err := persistence.Normalize(fields)
	if err != nil {
		return err
	}
	return s.write(ctx, func(tx *sql.Tx) error {
		doc, err := s.getTx(ctx, tx, collection, key)
		if errors.Is(err, persistence.ErrNotFound) {
			doc = persistence.Document{}
		} else if err != nil {
			return err
		}
		for field, value := range normalized {
			doc[field] = value
		}
		body, err := encodeBody(doc)
		if err != nil {
			return err
		}
		return s.upsertTx(ctx, tx, collection, key, body)
	})
}

// Append adds value to the array held in field inside one transaction.
func (s *Store) Append(ctx context.Context, collection, key, field string, value any) error {
	normalized, err := persistence.NormalizeValue(value)
	if err != nil {
		return err
	}
	return s.write(ctx, func(tx *sql.Tx) error {
		doc, err := s.getTx(ctx, tx, collection, key)
		if err != nil {
			return err
		}
		var items []any
		switch existing := doc[field].(type) {
		case nil:
		case []any:
			items = existing
		default:
			return fmt.Errorf("%w: field %q holds %T, not an array", persistence.ErrInvalidDocument, field, existing)
		}
		doc[field] = append(items, normalized)
		body, err := encodeBody(doc)
		if err != nil {
			return err
		}
		return s.upsertTx(ctx, tx, collection, key, body)
	})
}

// Delete removes the document stored under (collection, key).
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND doc_key = ?`, collection, key)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// List returns the documents of collection ordered by key.
func (s *Store) List(ctx context.Context, collection string) ([]persistence.Snapshot, error) {
	rows, err := s.pool.DB().QueryContext(ctx,
		`SELECT doc_key, body FROM documents WHERE collection = ? ORDER BY doc_key`,
		collection,
	)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	defer rows.Close()

	snapshots := make([]persistence.Snapshot, 0)
	for rows.Next() {
		var key, body string
		if err := rows.Scan(&key, &body); err != nil {
			return nil, s.mapper.MapError(err)
		}
		doc, err := decodeBody(body)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, persistence.Snapshot{Key: key, Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapper.MapError(err)
	}
	return snapshots, nil
}

func (s *Store) write(ctx context.Context, fn TransactionFunc) error {
	err := withRetry(ctx, s.retry, func() error {
		return s.mapper.MapError(s.pool.WithTransaction(ctx, fn))
	})
	return err
}

func (s *Store) getTx(ctx context.Context, tx *sql.Tx, collection, key string) (persistence.Document, error) {
	var body string
	err := tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND doc_key = ?`,
		collection, key,
	).Scan(&body)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	return decodeBody(body)
}

func (s *Store) upsertTx(ctx context.Context, tx *sql.Tx, collection, key, body string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO documents (collection, doc_key, body, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, doc_key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		collection, key, body, s.now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

func encodeBody(doc persistence.Document) (string, error) {
	if doc == nil {
		doc = persistence.Document{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", persistence.ErrInvalidDocument, err)
	}
	return string(raw), nil
}

func decodeBody(body string) (persistence.Document, error) {
	doc := persistence.Document{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", persistence.ErrInvalidDocument, err)
	}
	return doc, nil
}
