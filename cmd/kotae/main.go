// Package main is the Kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/answer"
	"github.com/kotae-ai/kotae/internal/chunker"
	"github.com/kotae-ai/kotae/internal/cli"
	"github.com/kotae-ai/kotae/internal/config"
	"github.com/kotae-ai/kotae/internal/embedding"
	"github.com/kotae-ai/kotae/internal/extract"
	"github.com/kotae-ai/kotae/internal/fileid"
	"github.com/kotae-ai/kotae/internal/ingest"
	"github.com/kotae-ai/kotae/internal/models"
	"github.com/kotae-ai/kotae/internal/retrieval"
	"github.com/kotae-ai/kotae/internal/retry"
	"github.com/kotae-ai/kotae/internal/server"
	"github.com/kotae-ai/kotae/internal/service"
	"github.com/kotae-ai/kotae/internal/storage"
	"github.com/kotae-ai/kotae/internal/vectorindex"
	"github.com/kotae-ai/kotae/internal/watcher"
	"github.com/kotae-ai/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "kotae server" from the project dir uses the project's
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "ingest":
		runIngest()
	case "rebuild":
		runRebuild()
	case "delete":
		runDelete()
	case "drop":
		runDrop()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
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

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	svc, err := initializeService(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	if err := svc.Start(rootCtx, cfg.Ingest.Workers); err != nil {
		logger.Fatal("Failed to start service", zap.Error(err))
	}
	defer svc.Stop()

	roots := make([]watcher.Root, 0, len(cfg.Watch.Directories))
	for _, d := range cfg.Watch.Directories {
		roots = append(roots, watcher.Root{Path: d.Path, Corpus: d.Corpus})
	}
	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.New(
		roots,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(corpus, path string) {
			if _, err := svc.IngestPath(context.Background(), corpus, path); err != nil {
				logger.Warn("watch ingest failed",
					zap.String("corpus", corpus), zap.String("path", path), zap.Error(err))
			}
		},
		func(corpus, path string) {
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			id := fileid.DocID(corpus, abs)
			if _, err := svc.GetDocument(context.Background(), id); err != nil {
				return
			}
			if err := svc.DeleteDocument(context.Background(), id); err != nil {
				logger.Warn("watch delete failed",
					zap.String("corpus", corpus), zap.String("path", path), zap.Error(err))
			}
		},
		watchOpts...,
	)
	if err := watchSvc.Start(rootCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer watchSvc.Stop()
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(svc, &cfg.Server, cfg.Storage.UploadDir, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runAsk() {
	args := reorderArgs(os.Args[2:])
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = direct mode without a running server)`)
	corpus := fs.String("corpus", "default", "corpus to answer from")
	topK := fs.Int("top-k", 0, "candidate passages to fetch (0 = config default)")
	minScore := fs.Float64("min-score", 0, "similarity floor (0 = config default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	verbose := fs.Bool("verbose", false, "print supporting passages")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var res *service.AnswerResult
	if *serverURL != "" {
		res, err = askViaHTTP(*serverURL, *corpus, question, *topK, *minScore)
	} else {
		res, err = askDirect(*configPath, *corpus, question, *topK, *minScore)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, res, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if *verbose && format == cli.OutputText {
		cli.WritePassages(os.Stdout, res)
	}
}

func askViaHTTP(serverURL, corpus, question string, topK int, minScore float64) (*service.AnswerResult, error) {
	body, err := json.Marshal(map[string]any{
		"question":  question,
		"top_k":     topK,
		"min_score": minScore,
	})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/corpora/"+corpus+"/answer",
		"application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var res service.AnswerResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &res, nil
}

func askDirect(configPath, corpus, question string, topK int, minScore float64) (*service.AnswerResult, error) {
	svc, err := directService(configPath)
	if err != nil {
		return nil, err
	}
	defer svc.Stop()
	res, err := svc.Answer(context.Background(), corpus, question, nil, retrieval.Options{
		TopK:     topK,
		MinScore: minScore,
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func runIngest() {
	args := reorderArgs(os.Args[2:])
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = direct mode)`)
	corpus := fs.String("corpus", "default", "corpus to ingest into")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid path: %v\n", err)
		os.Exit(1)
	}

	paths, err := collectIngestPaths(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read path: %v\n", err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		fmt.Println("No ingestible files found")
		os.Exit(1)
	}

	if *serverURL != "" {
		for _, p := range paths {
			doc, err := ingestViaHTTP(*serverURL, *corpus, p)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Ingest %s failed: %v\n", p, err)
				os.Exit(1)
			}
			fmt.Printf("Queued %s as %s\n", doc.Filename, doc.ID)
		}
		return
	}

	svc, err := directService(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer svc.Stop()
	ctx := context.Background()
	for _, p := range paths {
		doc, err := svc.IngestPath(ctx, *corpus, p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest %s failed: %v\n", p, err)
			os.Exit(1)
		}
		waitForDocument(ctx, svc, doc.ID)
	}
}

// waitForDocument blocks in direct mode until the background workers finish,
// so the process does not exit with work still queued.
func waitForDocument(ctx context.Context, svc *service.Service, id string) {
	for {
		doc, err := svc.GetDocument(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Lost track of document %s: %v\n", id, err)
			return
		}
		switch doc.Status {
		case models.StatusProcessed:
			fmt.Printf("Ingested %s (%d chunks)\n", doc.Filename, doc.ChunksCount)
			return
		case models.StatusFailed:
			fmt.Fprintf(os.Stderr, "Ingest %s failed: %s\n", doc.Filename, doc.Error)
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func collectIngestPaths(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	var paths []string
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(path, e.Name())
		if extract.Supported(filepath.Ext(p)) {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func ingestViaHTTP(serverURL, corpus, path string) (*models.Document, error) {
	body, err := json.Marshal(map[string]string{"path": path})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/corpora/"+corpus+"/documents",
		"application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var doc models.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &doc, nil
}

func runRebuild() {
	args := reorderArgs(os.Args[2:])
	fs := flag.NewFlagSet("rebuild", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	corpus := fs.String("corpus", "default", "corpus to rebuild")
	_ = fs.Parse(args)

	resp, err := http.Post(*serverURL+"/api/v1/corpora/"+*corpus+"/rebuild",
		"application/json", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Rebuild failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		Documents   int `json:"documents"`
		VectorCount int `json:"vector_count"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	fmt.Printf("Rebuilt %s: %d documents, %d vectors\n", *corpus, out.Documents, out.VectorCount)
}

func runDelete() {
	args := reorderArgs(os.Args[2:])
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae delete [flags] <document-id>")
		os.Exit(1)
	}
	id := fs.Arg(0)
	req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/documents/"+id, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Delete failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", id)
}

func runDrop() {
	args := reorderArgs(os.Args[2:])
	fs := flag.NewFlagSet("drop", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae drop [flags] <corpus>")
		os.Exit(1)
	}
	corpus := fs.Arg(0)
	req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/corpora/"+corpus, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Drop failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Printf("Corpus deleted: %s\n", corpus)
}

func runStatus() {
	args := reorderArgs(os.Args[2:])
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = direct mode)`)
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var st *service.Status
	if *serverURL != "" {
		st, err = statusViaHTTP(*serverURL)
	} else {
		st, err = statusDirect(*configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*service.Status, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var st service.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &st, nil
}

func statusDirect(configPath string) (*service.Status, error) {
	svc, err := directService(configPath)
	if err != nil {
		return nil, err
	}
	defer svc.Stop()
	st, err := svc.Status(context.Background())
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// directService builds a service from config for commands that run without a
// server.
func directService(configPath string) (*service.Service, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	svc, err := initializeService(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := svc.Start(context.Background(), cfg.Ingest.Workers); err != nil {
		return nil, err
	}
	return svc, nil
}

// initializeService is the composition root: it builds every component from
// config and wires them into a Service.
func initializeService(cfg *config.Config, logger *zap.Logger) (*service.Service, error) {
	registry, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize registry: %w", err)
	}

	backend, err := newEmbeddingBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	provider := embedding.NewProvider(backend, cfg.Embedding.MaxChars, cfg.Embedding.CacheSize)

	index, err := newVectorIndex(cfg, provider.Dimensions(), logger)
	if err != nil {
		return nil, err
	}

	ch := chunker.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	pipeline := ingest.NewPipeline(extract.NewExtractor(), ch, provider, index, registry,
		ingest.WithLogger(logger))
	workers := ingest.NewWorkers(pipeline, cfg.Ingest.QueueSize, logger)

	engine := retrieval.NewEngine(provider, index,
		retrieval.WithLogger(logger),
		retrieval.WithDefaults(retrieval.Options{
			TopK:       cfg.Retrieval.TopK,
			MinScore:   cfg.Retrieval.MinScore,
			FallbackK:  cfg.Retrieval.FallbackK,
			MaxContext: cfg.Retrieval.MaxContext,
		}))

	textgen, err := answer.NewOllamaBackend(answer.OllamaConfig{
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		Timeout:     cfg.Generation.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation backend: %w", err)
	}
	generator := answer.NewGenerator(textgen,
		answer.WithLogger(logger),
		answer.WithRetryPolicy(retry.Policy{MaxAttempts: cfg.Generation.MaxAttempts}))

	return service.New(registry, index, provider, pipeline, workers, engine, generator,
		service.WithLogger(logger),
		service.WithDataPaths(cfg.Storage.DatabasePath, cfg.Storage.SnapshotPath, cfg.Storage.UploadDir),
	), nil
}

func newEmbeddingBackend(cfg *config.Config, logger *zap.Logger) (embedding.Backend, error) {
	switch cfg.Embedding.Provider {
	case "rest":
		return embedding.NewRESTBackend(embedding.RESTConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     cfg.Embedding.APIKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		}), nil
	case "mock":
		return embedding.NewMockBackend(cfg.Embedding.Dimensions), nil
	default:
		backend, err := embedding.NewONNXBackend(
			cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
		)
		if err != nil {
			// The server can still run without the local model; answers
			// will be meaningless, so say so loudly.
			logger.Warn("onnx embedder unavailable, using mock embeddings",
				zap.String("model_path", cfg.Embedding.ModelPath),
				zap.Error(err))
			return embedding.NewMockBackend(cfg.Embedding.Dimensions), nil
		}
		return backend, nil
	}
}

func newVectorIndex(cfg *config.Config, dimensions int, logger *zap.Logger) (vectorindex.Index, error) {
	metric := vectorindex.Metric(cfg.Index.Metric)
	switch cfg.Index.Provider {
	case "remote":
		return vectorindex.NewRemoteIndex(vectorindex.RemoteConfig{
			BaseURL:   cfg.Index.BaseURL,
			APIKey:    cfg.Index.APIKey,
			IndexName: cfg.Index.IndexName,
			Dimension: dimensions,
			Metric:    metric,
		}, vectorindex.WithRemoteLogger(logger))
	default:
		return vectorindex.NewMemoryIndex(dimensions, metric,
			vectorindex.WithSnapshotPath(cfg.Storage.SnapshotPath),
			vectorindex.WithMemoryLogger(logger))
	}
}

// reorderArgs moves any flags (and their values) that appear after positional
// arguments to the front of the slice so that flag.Parse() sees them. Go's
// flag package stops at the first non-flag argument, so
// "kotae ask \"question\" -corpus kb" would otherwise leave -corpus unparsed.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printUsage() {
	fmt.Println(`kotae - Question answering over your documents

Usage:
  kotae server [flags]             Start the HTTP server
  kotae ask [flags] <question>     Ask a question against a corpus
  kotae ingest [flags] <path>      Ingest a file or directory
  kotae rebuild [flags]            Re-embed and re-index a corpus
  kotae delete [flags] <id>        Delete a document
  kotae drop [flags] <corpus>      Delete a whole corpus
  kotae status [flags]             Show registry and index status
  kotae version                    Show version
  kotae help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct mode.
  --corpus string    Corpus to answer from (default: default)
  --top-k int        Candidate passages to fetch (0 = config default)
  --min-score float  Similarity floor (0 = config default)
  --output string    Output format: text or json (default: text)
  --verbose          Print supporting passages

Ingest Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct mode.
  --corpus string    Corpus to ingest into (default: default)

Examples:
  kotae server
  kotae ingest --corpus handbook ./docs
  kotae ask --corpus handbook "how do I request time off?"
  kotae ask --verbose "what does the deployment pipeline do?"
  kotae status --output json
  kotae drop handbook`)
}
