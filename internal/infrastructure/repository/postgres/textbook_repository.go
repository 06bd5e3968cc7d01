package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tutorly/mathrag/internal/core/domain"
)

type TextbookRepository struct {
	db *sql.DB
}

func NewTextbookRepository(db *sql.DB) *TextbookRepository {
	return &TextbookRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *TextbookRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS textbooks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	filename TEXT NOT NULL,
	class_level TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	page_count INTEGER NOT NULL DEFAULT 0,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_textbooks_status ON textbooks(status);
CREATE INDEX IF NOT EXISTS idx_textbooks_class_level ON textbooks(class_level);
CREATE INDEX IF NOT EXISTS idx_textbooks_created_at ON textbooks(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *TextbookRepository) Create(ctx context.Context, tb *domain.Textbook) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO textbooks (
	id, title, filename, class_level, storage_path, status, page_count, chunk_count, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		tb.ID, tb.Title, tb.Filename, tb.ClassLevel, tb.StoragePath, string(tb.Status),
		tb.PageCount, tb.ChunkCount, tb.Error, tb.CreatedAt, tb.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert textbook: %w", err)
	}
	return nil
}

func (r *TextbookRepository) GetByID(ctx context.Context, id string) (*domain.Textbook, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, filename, class_level, storage_path, status, page_count, chunk_count, error_message, created_at, updated_at
FROM textbooks
WHERE id = $1
`, id)

	tb, err := scanTextbook(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrTextbookNotFound, "get textbook", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan textbook: %w", err)
	}
	return tb, nil
}

func (r *TextbookRepository) List(ctx context.Context) ([]domain.Textbook, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, filename, class_level, storage_path, status, page_count, chunk_count, error_message, created_at, updated_at
FROM textbooks
ORDER BY created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list textbooks: %w", err)
	}
	defer rows.Close()

	var out []domain.Textbook
	for rows.Next() {
		tb, err := scanTextbook(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan textbook row: %w", err)
		}
		out = append(out, *tb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate textbooks: %w", err)
	}
	return out, nil
}

func (r *TextbookRepository) UpdateStatus(ctx context.Context, id string, status domain.TextbookStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE textbooks
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update textbook status: %w", err)
	}
	return requireRowAffected(res, "update textbook status", id)
}

func (r *TextbookRepository) SaveIndexStats(ctx context.Context, id string, pageCount, chunkCount int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE textbooks
SET page_count = $2, chunk_count = $3, updated_at = $4
WHERE id = $1
`, id, pageCount, chunkCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save index stats: %w", err)
	}
	return requireRowAffected(res, "save index stats", id)
}

func scanTextbook(scan func(dest ...any) error) (*domain.Textbook, error) {
	var tb domain.Textbook
	var status string
	err := scan(
		&tb.ID, &tb.Title, &tb.Filename, &tb.ClassLevel, &tb.StoragePath, &status,
		&tb.PageCount, &tb.ChunkCount, &tb.Error, &tb.CreatedAt, &tb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	tb.Status = domain.TextbookStatus(status)
	return &tb, nil
}

func requireRowAffected(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrTextbookNotFound, op, fmt.Errorf("id %s", id))
	}
	return nil
}
