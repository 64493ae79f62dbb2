package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parcelmind/regsearch/internal/chunker"
	"github.com/parcelmind/regsearch/internal/embedding"
	"github.com/parcelmind/regsearch/internal/extract"
	"github.com/parcelmind/regsearch/internal/index"
	"github.com/parcelmind/regsearch/internal/models"
	"github.com/parcelmind/regsearch/internal/storage"
)

// ErrNoDocuments is returned when the raw directory holds no parseable
// documents.
var ErrNoDocuments = errors.New("ingest: no documents found")

// PageParser turns a source document into pages. Injectable so tests and
// alternate formats do not need real PDFs.
type PageParser func(path, city, regulation string) ([]models.Page, error)

// Config holds the directory layout and concurrency for a pipeline run.
// RawDir is scanned one level deep: each subdirectory is a city, each PDF
// inside it a regulation named by its file stem.
type Config struct {
	RawDir    string
	ParsedDir string
	ChunksDir string
	IndexDir  string
	Workers   int

	// Parser defaults to PDF extraction when nil.
	Parser PageParser
}

// Pipeline runs the full ingest path: parse, chunk, tag, embed, persist.
type Pipeline struct {
	cfg      Config
	chunker  *chunker.Chunker
	embedder embedding.Embedder
	catalog  *storage.Catalog
	logger   *zap.Logger
}

func New(cfg Config, ch *chunker.Chunker, emb embedding.Embedder, cat *storage.Catalog, logger *zap.Logger) *Pipeline {
	if cfg.Parser == nil {
		cfg.Parser = extract.ParsePDF
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, chunker: ch, embedder: emb, catalog: cat, logger: logger}
}

// Report summarizes one pipeline run.
type Report struct {
	RunID     string
	UpToDate  bool
	Documents int
	Chunks    int
	Embedded  int
	Skipped   []index.SkippedChunk
	Index     *index.Index
}

type sourceFile struct {
	path       string
	city       string
	regulation string
	mtime      int64
	size       int64
}

// Run ingests the raw directory. When every source file is unchanged since
// the last run and the index artifacts are intact, the existing index is
// loaded and returned with UpToDate set. Any change rebuilds the chunk
// manifest and the index as a whole; the artifact pair is never partially
// updated.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	sources, err := p.discover()
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDocuments, p.cfg.RawDir)
	}

	if p.allUnchanged(ctx, sources) {
		if idx, err := index.LoadArtifacts(p.cfg.IndexDir); err == nil {
			p.logger.Info("ingest up to date",
				zap.Int("documents", len(sources)),
				zap.Int("vectors", idx.Size()))
			return &Report{UpToDate: true, Documents: len(sources), Chunks: idx.Size(), Index: idx}, nil
		}
		p.logger.Warn("catalog up to date but artifacts unreadable, rebuilding")
	}

	runID := uuid.New().String()
	p.logger.Info("ingest run started",
		zap.String("run_id", runID),
		zap.Int("documents", len(sources)))

	var allChunks []models.Chunk
	type docResult struct {
		src    sourceFile
		pages  int
		chunks int
	}
	var parsed []docResult
	for _, src := range sources {
		pages, err := p.cfg.Parser(src.path, src.city, src.regulation)
		if err != nil {
			p.logger.Warn("parse failed, skipping document",
				zap.String("path", src.path),
				zap.Error(err))
			continue
		}
		if p.cfg.ParsedDir != "" {
			if err := p.writeParsed(src.regulation, pages); err != nil {
				p.logger.Warn("failed to persist parsed pages",
					zap.String("regulation", src.regulation),
					zap.Error(err))
			}
		}
		chunks := p.chunker.Chunk(pages)
		chunker.TagZoning(chunks)
		allChunks = append(allChunks, chunks...)
		parsed = append(parsed, docResult{src: src, pages: len(pages), chunks: len(chunks)})
		p.logger.Info("document chunked",
			zap.String("regulation", src.regulation),
			zap.String("city", src.city),
			zap.Int("pages", len(pages)),
			zap.Int("chunks", len(chunks)))
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("%w: all documents failed to parse", ErrNoDocuments)
	}

	if err := os.MkdirAll(p.cfg.ChunksDir, 0755); err != nil {
		return nil, fmt.Errorf("create chunks dir: %w", err)
	}
	if err := WriteManifest(filepath.Join(p.cfg.ChunksDir, ManifestFile), allChunks); err != nil {
		return nil, err
	}

	idx, buildRep, err := index.Build(ctx, allChunks, p.embedder,
		index.WithWorkers(p.cfg.Workers),
		index.WithLogger(p.logger))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.cfg.IndexDir, 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	if err := idx.Save(p.cfg.IndexDir); err != nil {
		return nil, err
	}

	keep := make(map[string]bool, len(parsed))
	for _, doc := range parsed {
		keep[doc.src.path] = true
		rec := &storage.DocumentRecord{
			ID:         storage.DocID(doc.src.path),
			Path:       doc.src.path,
			City:       doc.src.city,
			Regulation: doc.src.regulation,
			Pages:      doc.pages,
			Chunks:     doc.chunks,
			Mtime:      doc.src.mtime,
			Size:       doc.src.size,
			RunID:      runID,
		}
		if err := p.catalog.Upsert(ctx, rec); err != nil {
			return nil, err
		}
	}
	if removed, err := p.catalog.DeleteMissing(ctx, keep); err != nil {
		return nil, err
	} else if removed > 0 {
		p.logger.Info("removed stale catalog entries", zap.Int("count", removed))
	}

	p.logger.Info("ingest run finished",
		zap.String("run_id", runID),
		zap.Int("documents", len(parsed)),
		zap.Int("chunks", len(allChunks)),
		zap.Int("embedded", buildRep.Embedded),
		zap.Int("skipped", len(buildRep.Skipped)))

	return &Report{
		RunID:     runID,
		Documents: len(parsed),
		Chunks:    len(allChunks),
		Embedded:  buildRep.Embedded,
		Skipped:   buildRep.Skipped,
		Index:     idx,
	}, nil
}

// writeParsed persists the page sequence of one document as JSON, keeping
// the intermediate inspectable between runs.
func (p *Pipeline) writeParsed(regulation string, pages []models.Page) error {
	if err := os.MkdirAll(p.cfg.ParsedDir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(pages, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(p.cfg.ParsedDir, regulation+".json"), data, 0644)
}

// discover scans RawDir for city subdirectories holding PDF files.
func (p *Pipeline) discover() ([]sourceFile, error) {
	entries, err := os.ReadDir(p.cfg.RawDir)
	if err != nil {
		return nil, fmt.Errorf("read raw dir: %w", err)
	}
	var sources []sourceFile
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		city := entry.Name()
		cityDir := filepath.Join(p.cfg.RawDir, city)
		files, err := os.ReadDir(cityDir)
		if err != nil {
			return nil, fmt.Errorf("read city dir %s: %w", cityDir, err)
		}
		for _, file := range files {
			if file.IsDir() || !strings.EqualFold(filepath.Ext(file.Name()), ".pdf") {
				continue
			}
			info, err := file.Info()
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", file.Name(), err)
			}
			sources = append(sources, sourceFile{
				path:       filepath.Join(cityDir, file.Name()),
				city:       city,
				regulation: strings.TrimSuffix(file.Name(), filepath.Ext(file.Name())),
				mtime:      info.ModTime().Unix(),
				size:       info.Size(),
			})
		}
	}
	return sources, nil
}

// allUnchanged reports whether the discovered sources match the catalog
// exactly. Every source must be cataloged with the same mtime and size, and
// the catalog must hold no other documents; a removed file would otherwise
// keep its chunks alive in the old index.
func (p *Pipeline) allUnchanged(ctx context.Context, sources []sourceFile) bool {
	for _, src := range sources {
		if !p.catalog.Unchanged(ctx, src.path, src.mtime, src.size) {
			return false
		}
	}
	count, err := p.catalog.CountDocuments(ctx)
	if err != nil {
		return false
	}
	return count == int64(len(sources))
}
