package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"rolesync/internal/documents"
	"rolesync/pkg/platform/sentinel"
)

// PostgresStore persists documents as JSONB rows keyed by (collection, doc_id).
// Updates are captured into document_changes by a trigger installed with the
// schema migrations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed document store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get returns the document fields.
func (s *PostgresStore) Get(ctx context.Context, ref documents.Ref) (documents.Fields, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM documents WHERE collection = $1 AND doc_id = $2`,
		ref.Collection, ref.ID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", ref, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get document %s: %w", ref, err)
	}
	return decodeFields(raw)
}

// Set upserts the document. Merge writes combine top-level keys with the
// stored JSONB; non-merge writes replace it.
func (s *PostgresStore) Set(ctx context.Context, ref documents.Ref, fields documents.Fields, opts documents.SetOptions) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(fields.Clone())
	if err != nil {
		return fmt.Errorf("encode document %s: %w", ref, err)
	}

	query := `
		INSERT INTO documents (collection, doc_id, fields)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, doc_id) DO UPDATE SET
			fields = EXCLUDED.fields,
			updated_at = now()
	`
	if opts.Merge {
		query = `
			INSERT INTO documents (collection, doc_id, fields)
			VALUES ($1, $2, $3::jsonb)
			ON CONFLICT (collection, doc_id) DO UPDATE SET
				fields = documents.fields || EXCLUDED.fields,
				updated_at = now()
		`
	}

	if _, err := s.db.ExecContext(ctx, query, ref.Collection, ref.ID, string(raw)); err != nil {
		return fmt.Errorf("set document %s: %w", ref, err)
	}
	return nil
}

// List calls fn for every document in collection, ordered by id.
func (s *PostgresStore) List(ctx context.Context, collection string, fn func(id string, fields documents.Fields) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, fields FROM documents WHERE collection = $1 ORDER BY doc_id`,
		collection,
	)
	if err != nil {
		return fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return fmt.Errorf("scan %s: %w", collection, err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return err
		}
		if err := fn(id, fields); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Health pings the database.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func decodeFields(raw []byte) (documents.Fields, error) {
	fields := documents.Fields{}
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fields, nil
}
