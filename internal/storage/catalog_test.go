package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func record(path string, mtime, size int64, chunks int) *DocumentRecord {
	return &DocumentRecord{
		ID:         DocID(path),
		Path:       path,
		City:       "Oakland",
		Regulation: "Oakland_ADU",
		Pages:      12,
		Chunks:     chunks,
		Mtime:      mtime,
		Size:       size,
		RunID:      "run-1",
	}
}

func TestCatalog_UpsertGet(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	rec := record("/data/raw/oakland/Oakland_ADU.pdf", 100, 2048, 7)
	if err := c.Upsert(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, err := c.Get(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Regulation != "Oakland_ADU" || got.Chunks != 7 {
		t.Errorf("got %+v", got)
	}

	// Upsert replaces.
	rec.Chunks = 9
	if err := c.Upsert(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, _ = c.Get(ctx, rec.ID)
	if got.Chunks != 9 {
		t.Errorf("chunks = %d after upsert, want 9", got.Chunks)
	}
}

func TestCatalog_Unchanged(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	path := "/data/raw/sf/SF_Zoning.pdf"
	_ = c.Upsert(ctx, record(path, 100, 2048, 3))

	if !c.Unchanged(ctx, path, 100, 2048) {
		t.Error("same mtime+size must report unchanged")
	}
	if c.Unchanged(ctx, path, 101, 2048) {
		t.Error("different mtime must report changed")
	}
	if c.Unchanged(ctx, "/data/raw/other.pdf", 100, 2048) {
		t.Error("unknown path must report changed")
	}
}

func TestCatalog_Counts(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	_ = c.Upsert(ctx, record("/a.pdf", 1, 1, 3))
	_ = c.Upsert(ctx, record("/b.pdf", 1, 1, 5))

	docs, err := c.CountDocuments(ctx)
	if err != nil || docs != 2 {
		t.Errorf("docs = %d err=%v", docs, err)
	}
	chunks, err := c.CountChunks(ctx)
	if err != nil || chunks != 8 {
		t.Errorf("chunks = %d err=%v", chunks, err)
	}
}

func TestCatalog_DeleteMissing(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	_ = c.Upsert(ctx, record("/a.pdf", 1, 1, 1))
	_ = c.Upsert(ctx, record("/b.pdf", 1, 1, 1))

	deleted, err := c.DeleteMissing(ctx, map[string]bool{"/a.pdf": true})
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if _, err := c.Get(ctx, DocID("/b.pdf")); err == nil {
		t.Error("/b.pdf should have been removed")
	}
}

func TestDocID_Stable(t *testing.T) {
	if DocID("/x/y.pdf") != DocID("/x/y.pdf") {
		t.Error("DocID must be stable")
	}
	if DocID("/x/y.pdf") == DocID("/x/z.pdf") {
		t.Error("different paths must differ")
	}
}
