package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tutorly/mathrag/internal/core/domain"
)

// ChunkStore persists chunk records. Structured payloads (context,
// equations, media) live in JSONB columns; the filterable metadata is
// broken out into indexed columns.
type ChunkStore struct {
	db *sql.DB
}

func NewChunkStore(db *sql.DB) *ChunkStore {
	return &ChunkStore{db: db}
}

func (s *ChunkStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082602)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	class_level TEXT NOT NULL,
	chapter_number INTEGER NOT NULL DEFAULT 0,
	content_kind TEXT NOT NULL,
	label TEXT NOT NULL DEFAULT '',
	page_number INTEGER NOT NULL,
	text TEXT NOT NULL,
	context JSONB NOT NULL DEFAULT '{}'::jsonb,
	equations JSONB NOT NULL DEFAULT '[]'::jsonb,
	images JSONB NOT NULL DEFAULT '[]'::jsonb,
	tables JSONB NOT NULL DEFAULT '[]'::jsonb,
	char_count INTEGER NOT NULL DEFAULT 0,
	token_count INTEGER NOT NULL DEFAULT 0,
	math_density DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
CREATE INDEX IF NOT EXISTS idx_chunks_kind_label ON chunks(content_kind, label);
CREATE INDEX IF NOT EXISTS idx_chunks_class_chapter ON chunks(class_level, chapter_number);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (s *ChunkStore) Put(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `
INSERT INTO chunks (
	id, document_id, class_level, chapter_number, content_kind, label, page_number, text,
	context, equations, images, tables, char_count, token_count, math_density, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (id) DO UPDATE SET
	text = EXCLUDED.text,
	context = EXCLUDED.context,
	equations = EXCLUDED.equations,
	images = EXCLUDED.images,
	tables = EXCLUDED.tables
`
	for _, c := range chunks {
		contextJSON, equationsJSON, imagesJSON, tablesJSON, err := marshalChunkPayloads(c)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query,
			c.ID, c.DocumentID, c.ClassLevel, c.Context.ChapterNumber, string(c.Kind), c.Label, c.PageNumber, c.Text,
			contextJSON, equationsJSON, imagesJSON, tablesJSON, c.CharCount, c.TokenCount, c.MathDensity, c.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk tx: %w", err)
	}
	return nil
}

const chunkColumns = `id, document_id, class_level, content_kind, label, page_number, text, context, equations, images, tables, char_count, token_count, math_density, created_at`

func (s *ChunkStore) Get(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+chunkColumns+`
FROM chunks
WHERE id = $1
`, id)

	c, err := scanChunk(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrChunkNotFound, "get chunk", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan chunk: %w", err)
	}
	return c, nil
}

// Filter selects chunks matching every set field, ordered by document
// position so callers get stable output.
func (s *ChunkStore) Filter(ctx context.Context, filter domain.ChunkFilter) ([]domain.Chunk, error) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.DocumentID != "" {
		conds = append(conds, "document_id = "+arg(filter.DocumentID))
	}
	if filter.ClassLevel != "" {
		conds = append(conds, "class_level = "+arg(filter.ClassLevel))
	}
	if filter.ChapterNumber != 0 {
		conds = append(conds, "chapter_number = "+arg(filter.ChapterNumber))
	}
	if filter.Kind != "" {
		conds = append(conds, "content_kind = "+arg(string(filter.Kind)))
	}
	if filter.Label != "" {
		conds = append(conds, "label = "+arg(filter.Label))
	}

	query := `SELECT ` + chunkColumns + ` FROM chunks`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY document_id, page_number, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("filter chunks: %w", err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		c, err := scanChunk(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

// DeleteByDocument removes a document's chunks and returns their ids
// so the caller can evict the search indexes.
func (s *ChunkStore) DeleteByDocument(ctx context.Context, documentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
DELETE FROM chunks
WHERE document_id = $1
RETURNING id
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("delete chunks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan deleted id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted ids: %w", err)
	}
	return ids, nil
}

func marshalChunkPayloads(c domain.Chunk) (contextJSON, equationsJSON, imagesJSON, tablesJSON []byte, err error) {
	if contextJSON, err = json.Marshal(c.Context); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal context: %w", err)
	}
	if equationsJSON, err = marshalSlice(c.Equations); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal equations: %w", err)
	}
	if imagesJSON, err = marshalSlice(c.Images); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal images: %w", err)
	}
	if tablesJSON, err = marshalSlice(c.Tables); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal tables: %w", err)
	}
	return contextJSON, equationsJSON, imagesJSON, tablesJSON, nil
}

func marshalSlice[T any](v []T) ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v)
}

func scanChunk(scan func(dest ...any) error) (*domain.Chunk, error) {
	var c domain.Chunk
	var kind string
	var contextRaw, equationsRaw, imagesRaw, tablesRaw []byte

	err := scan(
		&c.ID, &c.DocumentID, &c.ClassLevel, &kind, &c.Label, &c.PageNumber, &c.Text,
		&contextRaw, &equationsRaw, &imagesRaw, &tablesRaw,
		&c.CharCount, &c.TokenCount, &c.MathDensity, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Kind = domain.ContentKind(kind)
	if err := json.Unmarshal(contextRaw, &c.Context); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	if err := unmarshalSlice(equationsRaw, &c.Equations); err != nil {
		return nil, fmt.Errorf("unmarshal equations: %w", err)
	}
	if err := unmarshalSlice(imagesRaw, &c.Images); err != nil {
		return nil, fmt.Errorf("unmarshal images: %w", err)
	}
	if err := unmarshalSlice(tablesRaw, &c.Tables); err != nil {
		return nil, fmt.Errorf("unmarshal tables: %w", err)
	}
	return &c, nil
}

func unmarshalSlice[T any](raw []byte, dst *[]T) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
