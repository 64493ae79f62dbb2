// Package storage provides the SQLite catalog of ingested regulation
// documents.
package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DocumentRecord is one ingested source document. Mtime and Size let the
// pipeline detect unchanged files and skip a rebuild.
type DocumentRecord struct {
	ID         string
	Path       string
	City       string
	Regulation string
	Pages      int
	Chunks     int
	Mtime      int64
	Size       int64
	RunID      string
	IngestedAt time.Time
}

// Catalog tracks which source documents have been ingested and with what
// chunk counts.
type Catalog struct {
	db *sql.DB
}

// NewCatalog opens or creates the catalog database at dbPath, creating parent
// directories if needed.
func NewCatalog(dbPath string) (*Catalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		city TEXT,
		regulation TEXT,
		pages INTEGER NOT NULL,
		chunks INTEGER NOT NULL,
		mtime INTEGER NOT NULL,
		size INTEGER NOT NULL,
		run_id TEXT,
		ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_documents_path ON documents(path);
	`
	_, err := db.Exec(schema)
	return err
}

// DocID returns a stable document ID for a source file path. The same path
// always yields the same ID.
func DocID(path string) string {
	normalized := filepath.Clean(path)
	hash := sha256.Sum256([]byte(normalized))
	return "doc:" + hex.EncodeToString(hash[:])
}

// Upsert inserts or replaces the record for rec.ID.
func (c *Catalog) Upsert(ctx context.Context, rec *DocumentRecord) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO documents (id, path, city, regulation, pages, chunks, mtime, size, run_id, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			city = excluded.city,
			regulation = excluded.regulation,
			pages = excluded.pages,
			chunks = excluded.chunks,
			mtime = excluded.mtime,
			size = excluded.size,
			run_id = excluded.run_id,
			ingested_at = CURRENT_TIMESTAMP`,
		rec.ID, rec.Path, rec.City, rec.Regulation, rec.Pages, rec.Chunks, rec.Mtime, rec.Size, rec.RunID,
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Get returns the record for id, or sql.ErrNoRows.
func (c *Catalog) Get(ctx context.Context, id string) (*DocumentRecord, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, path, city, regulation, pages, chunks, mtime, size, run_id, ingested_at
		FROM documents WHERE id = ?`, id)
	var rec DocumentRecord
	var runID sql.NullString
	if err := row.Scan(&rec.ID, &rec.Path, &rec.City, &rec.Regulation, &rec.Pages, &rec.Chunks,
		&rec.Mtime, &rec.Size, &runID, &rec.IngestedAt); err != nil {
		return nil, err
	}
	rec.RunID = runID.String
	return &rec, nil
}

// Unchanged reports whether the file at path is already cataloged with the
// same mtime and size.
func (c *Catalog) Unchanged(ctx context.Context, path string, mtime, size int64) bool {
	rec, err := c.Get(ctx, DocID(path))
	if err != nil {
		return false
	}
	return rec.Mtime == mtime && rec.Size == size
}

// List returns all records ordered by path.
func (c *Catalog) List(ctx context.Context) ([]*DocumentRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, path, city, regulation, pages, chunks, mtime, size, run_id, ingested_at
		FROM documents ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var records []*DocumentRecord
	for rows.Next() {
		var rec DocumentRecord
		var runID sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.City, &rec.Regulation, &rec.Pages, &rec.Chunks,
			&rec.Mtime, &rec.Size, &runID, &rec.IngestedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		rec.RunID = runID.String
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// DeleteMissing removes records whose path is not in keep. Returns the number
// of deleted records.
func (c *Catalog) DeleteMissing(ctx context.Context, keep map[string]bool) (int, error) {
	records, err := c.List(ctx)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, rec := range records {
		if keep[rec.Path] {
			continue
		}
		if _, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, rec.ID); err != nil {
			return deleted, fmt.Errorf("delete document: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

// CountDocuments returns the number of cataloged documents.
func (c *Catalog) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// CountChunks returns the total chunk count across documents.
func (c *Catalog) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(chunks), 0) FROM documents`).Scan(&n)
	return n, err
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}
