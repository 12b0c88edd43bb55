package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Collections used by the bot.
const (
	CollectionServers = "servers"
	CollectionUsers   = "users"
)

// ErrDocumentNotFound indicates a lookup for a document that was never
// written.
var ErrDocumentNotFound = errors.New("document not found")

// Document is a schemaless JSON object. Nested objects decode as
// map[string]any and arrays as []any.
type Document map[string]any

// docRow is the storage shape: one JSONB blob per (collection, id).
type docRow struct {
	bun.BaseModel `bun:"table:documents"`

	Collection string   `bun:"collection,pk"`
	ID         int64    `bun:"id,pk"`
	Data       Document `bun:"data,type:jsonb"`
}

// Store reads and patches documents.
type Store struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewStore creates a Store on an established connection.
func NewStore(db *bun.DB, logger *zap.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.Named("documents"),
	}
}

// Get fetches one document. Returns ErrDocumentNotFound when it does not
// exist.
func (s *Store) Get(ctx context.Context, collection string, id int64) (Document, error) {
	var row docRow
	err := s.db.NewSelect().
		Model(&row).
		Where("collection = ?", collection).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%d", ErrDocumentNotFound, collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%d: %w", collection, id, err)
	}

	return row.Data, nil
}

// All fetches every document in a collection, keyed by ID.
func (s *Store) All(ctx context.Context, collection string) (map[int64]Document, error) {
	var rows []docRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("collection = ?", collection).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection %s: %w", collection, err)
	}

	docs := make(map[int64]Document, len(rows))
	for _, row := range rows {
		docs[row.ID] = row.Data
	}
	return docs, nil
}

// Delete removes a document. Deleting a missing document is a no-op.
func (s *Store) Delete(ctx context.Context, collection string, id int64) error {
	_, err := s.db.NewDelete().
		Model((*docRow)(nil)).
		Where("collection = ?", collection).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%d: %w", collection, id, err)
	}
	return nil
}

// Apply patches a document inside a transaction, creating it from the given
// defaults when it does not exist yet. The row is locked for the duration of
// the read-modify-write so concurrent handlers never lose updates. The
// patched document is returned.
func (s *Store) Apply(
	ctx context.Context, collection string, id int64, defaults Document, patch Patch,
) (Document, error) {
	var result Document

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var row docRow
		err := tx.NewSelect().
			Model(&row).
			Where("collection = ?", collection).
			Where("id = ?", id).
			For("UPDATE").
			Scan(ctx)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			row = docRow{Collection: collection, ID: id, Data: defaults.clone()}
			if row.Data == nil {
				row.Data = Document{}
			}
			row.Data["_id"] = id
		case err != nil:
			return err
		}

		row.Data = patch.ApplyTo(row.Data)
		result = row.Data

		_, err = tx.NewInsert().
			Model(&row).
			On("CONFLICT (collection, id) DO UPDATE").
			Set("data = EXCLUDED.data").
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to patch document %s/%d: %w", collection, id, err)
	}

	return result, nil
}

// clone copies a document one level deep plus nested maps and slices, so
// patches on a fresh document never mutate shared defaults.
func (d Document) clone() Document {
	if d == nil {
		return nil
	}

	out := make(Document, len(d))
	for key, value := range d {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = cloneValue(inner)
		}
		return out
	case Document:
		return map[string]any(v.clone())
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}
