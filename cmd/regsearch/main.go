// Package main is the regsearch CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/parcelmind/regsearch/internal/answer"
	"github.com/parcelmind/regsearch/internal/chunker"
	"github.com/parcelmind/regsearch/internal/config"
	"github.com/parcelmind/regsearch/internal/embedding"
	"github.com/parcelmind/regsearch/internal/evidence"
	"github.com/parcelmind/regsearch/internal/generation"
	"github.com/parcelmind/regsearch/internal/index"
	"github.com/parcelmind/regsearch/internal/ingest"
	"github.com/parcelmind/regsearch/internal/parcel"
	"github.com/parcelmind/regsearch/internal/retrieve"
	"github.com/parcelmind/regsearch/internal/server"
	"github.com/parcelmind/regsearch/internal/storage"
	"github.com/parcelmind/regsearch/internal/watcher"
	"github.com/parcelmind/regsearch/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

// loadConfig loads config from path. A missing default config file is not an
// error; built-in defaults apply.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

func main() {
	// GEMINI_API_KEY and friends may live in a local .env file.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "query":
		runQuery()
	case "answer":
		runAnswer()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("regsearch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds initialized services shared by the subcommands.
type Components struct {
	Catalog   *storage.Catalog
	Embedder  embedding.Embedder
	Generator generation.Generator
	Parcel    *parcel.Client
	Chunker   *chunker.Chunker
	Pipeline  *ingest.Pipeline
}

func (c *Components) Close() {
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Data.CatalogPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	catalog, err := storage.NewCatalog(cfg.Data.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	var embedder embedding.Embedder
	var generator generation.Generator
	if apiKey != "" {
		embedder, err = embedding.NewGeminiEmbedder(embedding.GeminiConfig{
			APIKey:  apiKey,
			Model:   cfg.Gemini.EmbeddingModel,
			BaseURL: cfg.Gemini.BaseURL,
		})
		if err != nil {
			_ = catalog.Close()
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		generator, err = generation.NewGeminiGenerator(generation.GeminiConfig{
			APIKey:  apiKey,
			Model:   cfg.Gemini.GenerationModel,
			BaseURL: cfg.Gemini.BaseURL,
		})
		if err != nil {
			_ = catalog.Close()
			return nil, fmt.Errorf("failed to initialize generator: %w", err)
		}
	} else {
		// No API key: deterministic mock vectors keep the pipeline usable
		// for local development, but answers are not generated.
		logger.Warn("GEMINI_API_KEY not set, using mock embeddings")
		embedder = embedding.NewMockEmbedder(0)
	}

	counter, err := chunker.NewTiktokenCounter()
	if err != nil {
		_ = catalog.Close()
		return nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}
	ch := chunker.New(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap, counter)

	pipeline := ingest.New(ingest.Config{
		RawDir:    cfg.Data.RawDir,
		ParsedDir: cfg.Data.ParsedDir,
		ChunksDir: cfg.Data.ChunksDir,
		IndexDir:  cfg.Data.IndexDir,
		Workers:   cfg.Retrieval.Workers,
	}, ch, embedder, catalog, logger)

	return &Components{
		Catalog:   catalog,
		Embedder:  embedder,
		Generator: generator,
		Parcel: parcel.NewClient(parcel.Config{
			NominatimURL: cfg.Parcel.NominatimURL,
			ParcelzURL:   cfg.Parcel.ParcelzURL,
		}, logger),
		Chunker:  ch,
		Pipeline: pipeline,
	}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// Serve an existing index immediately when the sources are unchanged;
	// otherwise rebuild before accepting queries.
	var idx *index.Index
	if rep, err := components.Pipeline.Run(context.Background()); err != nil {
		logger.Warn("initial ingest failed, starting without an index", zap.Error(err))
	} else {
		idx = rep.Index
	}

	if components.Generator == nil {
		logger.Warn("no generator configured, /api/v1/answer will fail")
		components.Generator = generation.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
			return "", fmt.Errorf("answer generation requires GEMINI_API_KEY")
		})
	}
	srv := server.NewServer(
		idx,
		components.Embedder,
		answer.New(components.Generator, logger),
		components.Parcel,
		components.Catalog,
		cfg,
		logger,
	)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled {
		watchSvc := watcher.New(cfg.Data.RawDir, func() {
			rep, err := components.Pipeline.Run(context.Background())
			if err != nil {
				logger.Error("rebuild after document change failed", zap.Error(err))
				return
			}
			srv.SetIndex(rep.Index)
		},
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
			watcher.WithLogger(logger),
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	force := fs.Bool("force", false, "rebuild even when sources are unchanged")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if *force {
		// Dropping the artifacts invalidates the unchanged check.
		_ = os.Remove(filepath.Join(cfg.Data.IndexDir, index.VectorsFile))
		_ = os.Remove(filepath.Join(cfg.Data.IndexDir, index.MetadataFile))
	}

	rep, err := components.Pipeline.Run(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	if rep.UpToDate {
		fmt.Printf("Up to date: %d document(s), %d vector(s)\n", rep.Documents, rep.Chunks)
		return
	}
	fmt.Printf("Ingested %d document(s): %d chunk(s), %d embedded", rep.Documents, rep.Chunks, rep.Embedded)
	if len(rep.Skipped) > 0 {
		fmt.Printf(", %d skipped", len(rep.Skipped))
	}
	fmt.Println()
}

// buildQueryText joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQueryText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	city := fs.String("city", "", "restrict results to a city")
	zoning := fs.String("zoning", "", "restrict results to a zoning designation")
	topK := fs.Int("top-k", 0, "number of results (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	queryText := buildQueryText(fs.Args())
	if queryText == "" {
		fmt.Println("Usage: regsearch query [flags] <question>")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	idx, err := index.LoadArtifacts(cfg.Data.IndexDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "No index available (run \"regsearch ingest\" first): %v\n", err)
		os.Exit(1)
	}
	retriever := retrieve.New(idx, components.Embedder, logger)

	k := *topK
	if k <= 0 {
		k = cfg.Retrieval.TopK
	}
	resp, err := retriever.Retrieve(context.Background(), queryText, retrieve.Filters{City: *city, Zoning: *zoning}, k)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		if resp.FilterRelaxed {
			fmt.Println("(no chunks matched the filters; showing unfiltered results)")
		}
		for i, res := range resp.Results {
			item := evidence.FromResults([]retrieve.Result{res})[0]
			fmt.Printf("%d. %s  pages %d-%d  lines %d-%d  similarity %.3f\n",
				i+1, item.SourceFile, item.PageStart, item.PageEnd, item.LineStart, item.LineEnd, res.Similarity)
			fmt.Printf("   %s\n", utils.Truncate(strings.ReplaceAll(item.Text, "\n", " "), 200))
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func runAnswer() {
	fs := flag.NewFlagSet("answer", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	address := fs.String("address", "", "property address (required)")
	topK := fs.Int("top-k", 0, "number of chunks to retrieve (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	question := buildQueryText(fs.Args())
	if question == "" || *address == "" {
		fmt.Println("Usage: regsearch answer --address <address> [flags] <question>")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if components.Generator == nil {
		fmt.Fprintln(os.Stderr, "Answer generation requires GEMINI_API_KEY")
		os.Exit(1)
	}

	idx, err := index.LoadArtifacts(cfg.Data.IndexDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "No index available (run \"regsearch ingest\" first): %v\n", err)
		os.Exit(1)
	}
	retriever := retrieve.New(idx, components.Embedder, logger)

	ctx := context.Background()
	prop := components.Parcel.Lookup(ctx, *address)

	k := *topK
	if k <= 0 {
		k = cfg.Retrieval.TopK
	}
	resp, err := retriever.Retrieve(ctx, question, retrieve.Filters{City: prop.City, Zoning: prop.Zoning}, k)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval failed: %v\n", err)
		os.Exit(1)
	}
	result, err := answer.New(components.Generator, logger).Answer(ctx, prop, question, resp.Results)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Answer failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		out := map[string]interface{}{
			"property":       prop,
			"answer":         result.Answer,
			"evidence":       result.Evidence,
			"filter_relaxed": resp.FilterRelaxed,
		}
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("Property: %s (%s, zoning %s)\n\n", prop.Address, prop.City, prop.Zoning)
		fmt.Println(result.Answer)
		if len(result.Evidence) > 0 {
			fmt.Println("\nEvidence:")
			for i, item := range result.Evidence {
				fmt.Printf("  %d. %s  pages %d-%d  lines %d-%d\n",
					i+1, item.SourceFile, item.PageStart, item.PageEnd, item.LineStart, item.LineEnd)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	catalog, err := storage.NewCatalog(cfg.Data.CatalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open catalog: %v\n", err)
		os.Exit(1)
	}
	defer catalog.Close()

	ctx := context.Background()
	docCount, err := catalog.CountDocuments(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
		os.Exit(1)
	}
	chunkCount, err := catalog.CountChunks(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
		os.Exit(1)
	}
	vectorSize := 0
	if idx, err := index.LoadArtifacts(cfg.Data.IndexDir); err == nil {
		vectorSize = idx.Size()
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		out := map[string]interface{}{
			"documents":         docCount,
			"chunks":            chunkCount,
			"vector_index_size": vectorSize,
			"config": map[string]interface{}{
				"chunk_size":       cfg.Chunking.ChunkSize,
				"chunk_overlap":    cfg.Chunking.Overlap,
				"top_k":            cfg.Retrieval.TopK,
				"embedding_model":  cfg.Gemini.EmbeddingModel,
				"generation_model": cfg.Gemini.GenerationModel,
				"index_dir":        cfg.Data.IndexDir,
			},
		}
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:          %d   # count of ingested regulation documents\n", docCount)
		fmt.Printf("chunks:             %d   # count of text chunks\n", chunkCount)
		fmt.Printf("vector_index_size:  %d   # count of vectors in the index\n", vectorSize)
		fmt.Println()
		fmt.Println("# configuration")
		fmt.Printf("chunk_size:         %d\n", cfg.Chunking.ChunkSize)
		fmt.Printf("chunk_overlap:      %d\n", cfg.Chunking.Overlap)
		fmt.Printf("top_k:              %d\n", cfg.Retrieval.TopK)
		fmt.Printf("embedding_model:    %s\n", cfg.Gemini.EmbeddingModel)
		fmt.Printf("generation_model:   %s\n", cfg.Gemini.GenerationModel)
		fmt.Printf("index_dir:          %s\n", cfg.Data.IndexDir)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`regsearch - Regulation document retrieval for property questions

Usage:
  regsearch server [flags]                     Start the HTTP server
  regsearch ingest [flags]                     Parse, chunk, embed and index regulation PDFs
  regsearch query [flags] <question>           Retrieve the most relevant chunks
  regsearch answer --address <addr> <question> Answer a property question with citations
  regsearch status [flags]                     Show catalog and index status
  regsearch version                            Show version
  regsearch help                               Show this help

Server Flags:
  --config string    Config file path (default: config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --config string    Config file path
  --force            Rebuild even when sources are unchanged

Query Flags:
  --config string    Config file path
  --city string      Restrict results to a city
  --zoning string    Restrict results to a zoning designation
  --top-k int        Number of results (default from config)
  --output string    Output format: text or json (default: text)

Answer Flags:
  --config string    Config file path
  --address string   Property address (required)
  --top-k int        Number of chunks to retrieve (default from config)
  --output string    Output format: text or json (default: text)

Examples:
  regsearch ingest
  regsearch query --city Oakland "ADU setback requirements"
  regsearch answer --address "2145 Grand Ave, Oakland, CA" "Can I build an ADU?"
  regsearch status --output json`)
}
