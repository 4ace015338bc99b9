// graphiti-qdrant is a pipeline and MCP server for semantic search over
// vendor documentation published as llms-full.txt files.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	_ "github.com/donbr/graphiti-qdrant/builtin" // registers embedding providers
	qdrantStore "github.com/donbr/graphiti-qdrant/builtin/vectorstore/qdrant"
	"github.com/donbr/graphiti-qdrant/internal/config"
	"github.com/donbr/graphiti-qdrant/internal/fetch"
	"github.com/donbr/graphiti-qdrant/internal/ingest"
	"github.com/donbr/graphiti-qdrant/internal/mcp"
	"github.com/donbr/graphiti-qdrant/internal/pagestore"
	"github.com/donbr/graphiti-qdrant/internal/search"
	"github.com/donbr/graphiti-qdrant/pkg/provider"
	"github.com/donbr/graphiti-qdrant/pkg/types"
)

var (
	version   = "0.3.0"
	configDir string
	logLevel  string
	logFormat string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "graphiti-qdrant",
	Short: "Documentation search pipeline backed by Qdrant",
	Long: `graphiti-qdrant downloads vendor documentation published as llms.txt and
llms-full.txt files, splits it into pages, embeds the pages, and uploads
them to a Qdrant collection. The serve command exposes the collection to
MCP clients via search_docs and list_sources tools.

Pipeline stages:
  download -> split -> upload -> serve`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("graphiti-qdrant %s\n", version)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download llms.txt and llms-full.txt files from all sources",
	Run: func(cmd *cobra.Command, args []string) {
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		runDownload(concurrency)
	},
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split downloaded llms-full.txt files into page records",
	Run: func(cmd *cobra.Command, args []string) {
		runSplit()
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Embed split pages and upload them to Qdrant",
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		runUpload(dryRun)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the Qdrant collection against the local split data",
	Run: func(cmd *cobra.Command, args []string) {
		runValidate()
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the documentation collection",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		source, _ := cmd.Flags().GetString("source")
		runSearch(args[0], limit, source)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP server",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch raw files and re-split sources on change",
	Run: func(cmd *cobra.Command, args []string) {
		debounce, _ := cmd.Flags().GetInt("debounce")
		runWatch(debounce)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection status",
	Run: func(cmd *cobra.Command, args []string) {
		runStatus()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration",
	Run: func(cmd *cobra.Command, args []string) {
		runConfigInit()
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Run: func(cmd *cobra.Command, args []string) {
		runConfigValidate()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory containing graphiti-qdrant.yaml (default: working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	downloadCmd.Flags().IntP("concurrency", "n", fetch.DefaultConcurrency, "parallel source downloads")

	uploadCmd.Flags().Bool("dry-run", false, "load and report documents without uploading")

	searchCmd.Flags().IntP("limit", "l", 0, "maximum results, 1-20 (default from config)")
	searchCmd.Flags().StringP("source", "s", "", "filter by source name")

	watchCmd.Flags().Int("debounce", 500, "debounce time in milliseconds")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

func setupLogging() {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// configRoot is the directory holding the config file, from --config or
// the working directory.
func configRoot() string {
	if configDir != "" {
		return configDir
	}
	cwd, _ := os.Getwd()
	return cwd
}

// loadConfig loads the config, printing warnings.
func loadConfig() *config.Config {
	cfg, warnings, err := config.Load(configRoot())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		slog.Warn(w)
	}
	return cfg
}

// createStore connects to Qdrant based on config.
func createStore(cfg *config.Config) provider.VectorStore {
	store, err := qdrantStore.New(qdrantStore.Config{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		APIKey:     cfg.Qdrant.APIKey,
		UseTLS:     cfg.Qdrant.UseTLS,
		Collection: cfg.Qdrant.Collection,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		slog.Error("failed to connect to qdrant", "error", err)
		os.Exit(1)
	}
	return store
}

// createEmbedding creates the configured embedding provider.
func createEmbedding(cfg *config.Config) provider.EmbeddingProvider {
	embedding, err := provider.DefaultRegistry.CreateEmbedding(cfg.Embedding.Provider, provider.EmbeddingConfig{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		Endpoint:   cfg.Embedding.Endpoint,
		APIKey:     cfg.Embedding.APIKey,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
	})
	if err != nil {
		slog.Error("failed to create embedding provider", "error", err)
		os.Exit(1)
	}
	return embedding
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	return ctx, cancel
}

func runDownload(concurrency int) {
	cfg := loadConfig()

	ctx, cancel := signalContext()
	defer cancel()

	d := fetch.New(cfg.Data.RawDir, fetch.WithConcurrency(concurrency))

	fmt.Printf("Downloading from %d sources to %s\n", len(cfg.Sources), cfg.Data.RawDir)
	manifest, err := d.DownloadAll(ctx, cfg.Sources)
	if err != nil {
		slog.Error("download failed", "error", err)
		os.Exit(1)
	}

	names := make([]string, 0, len(manifest.Sources))
	for name := range manifest.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res := manifest.Sources[name]
		fmt.Printf("  %s:\n", name)
		printFileResult("llms.txt", res.Index)
		printFileResult("llms-full.txt", res.Full)
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  llms.txt: %d succeeded, %d failed\n", manifest.Summary.Index.Success, manifest.Summary.Index.Failed)
	fmt.Printf("  llms-full.txt: %d succeeded, %d failed\n", manifest.Summary.Full.Success, manifest.Summary.Full.Failed)
	fmt.Printf("  Duration: %.1fs\n", manifest.DurationSeconds)

	if manifest.Summary.Index.Failed > 0 || manifest.Summary.Full.Failed > 0 {
		os.Exit(1)
	}
}

func printFileResult(name string, res types.DownloadResult) {
	if res.Status == "success" {
		fmt.Printf("    %s: %.1f KB\n", name, float64(res.SizeBytes)/1024)
	} else {
		fmt.Printf("    %s: FAILED (%s)\n", name, res.Error)
	}
}

func runSplit() {
	cfg := loadConfig()

	splitter := ingest.NewSplitter(cfg.Data.RawDir, pagestore.New(cfg.Data.PagesDir))
	manifest, err := splitter.SplitAll(cfg.SplitSources())
	if err != nil {
		slog.Error("split failed", "error", err)
		os.Exit(1)
	}

	names := make([]string, 0, len(manifest.Results))
	for name := range manifest.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		report := manifest.Results[name]
		switch report.Status {
		case "success":
			fmt.Printf("  %s: %d pages (avg %.0f chars)\n", name, report.PageCount, report.AvgSize)
		default:
			fmt.Printf("  %s: %s (%s)\n", name, report.Status, report.Error)
		}
	}
	fmt.Printf("\nProcessed %d sources, %d pages total\n", manifest.SourcesProcessed, manifest.TotalPages)

	if failed := manifest.FailedSources(); len(failed) > 0 {
		fmt.Printf("ERROR: %d sources failed to split: %v\n", len(failed), failed)
		os.Exit(1)
	}
}

func runUpload(dryRun bool) {
	cfg := loadConfig()

	store := pagestore.New(cfg.Data.PagesDir)
	docs, err := store.LoadDocuments()
	if err != nil {
		slog.Error("failed to load documents", "error", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		fmt.Println("No documents to upload. Run 'graphiti-qdrant split' first.")
		os.Exit(1)
	}

	fmt.Printf("Loaded %d documents from %s\n", len(docs), cfg.Data.PagesDir)

	if dryRun {
		bySource := map[string]int{}
		for _, d := range docs {
			bySource[d.SourceName]++
		}
		names := make([]string, 0, len(bySource))
		for name := range bySource {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s: %d documents\n", name, bySource[name])
		}
		fmt.Println("\nDry run, nothing uploaded.")
		return
	}

	ctx, cancel := signalContext()
	defer cancel()

	vstore := createStore(cfg)
	defer vstore.Close()

	embedding := createEmbedding(cfg)
	defer embedding.Close()

	if err := embedding.Available(ctx); err != nil {
		slog.Error("embedding provider not available", "provider", embedding.Name(), "error", err)
		os.Exit(1)
	}
	if err := embedding.Warmup(ctx); err != nil {
		slog.Warn("embedding warmup failed", "error", err)
	}

	uploader := ingest.NewUploader(vstore, embedding, cfg.Upload.BatchSize, cfg.Upload.Workers)
	uploader.OnProgress(func(p types.UploadProgress) {
		fmt.Printf("\rUploading: batch %d/%d, %d/%d documents", p.UploadedBatch, p.TotalBatches, p.ProcessedDocs, p.TotalDocs)
	})

	start := time.Now()
	manifest, err := uploader.Run(ctx, docs, cfg.Qdrant.Collection)
	if err != nil {
		fmt.Println()
		slog.Error("upload failed", "error", err)
		os.Exit(1)
	}
	fmt.Println()

	if err := ingest.SaveUploadManifest(cfg.Data.ProcessedDir, manifest); err != nil {
		slog.Warn("failed to save upload manifest", "error", err)
	}

	fmt.Printf("Uploaded %d/%d documents to %s in %.1fs\n",
		manifest.DocumentsUploaded, manifest.DocumentsTotal, manifest.CollectionName, time.Since(start).Seconds())
	if manifest.FailedBatches > 0 {
		fmt.Printf("WARNING: %d batches failed\n", manifest.FailedBatches)
		os.Exit(1)
	}
}

func runValidate() {
	cfg := loadConfig()

	ctx, cancel := signalContext()
	defer cancel()

	vstore := createStore(cfg)
	defer vstore.Close()

	status, err := vstore.Info(ctx)
	if err != nil {
		slog.Error("failed to get collection info", "error", err)
		os.Exit(1)
	}

	fmt.Println("=== Collection ===")
	fmt.Printf("Name:       %s\n", status.Collection)
	fmt.Printf("Status:     %s\n", status.Status)
	fmt.Printf("Points:     %d\n", status.PointsCount)
	fmt.Printf("Dimensions: %d\n", status.Dimensions)
	fmt.Printf("Distance:   %s\n", status.Distance)

	ok := true
	if status.Dimensions != uint64(cfg.Embedding.Dimensions) {
		fmt.Printf("ERROR: dimensions mismatch, config expects %d\n", cfg.Embedding.Dimensions)
		ok = false
	}
	if status.Distance != "Cosine" {
		fmt.Printf("ERROR: distance is %s, expected Cosine\n", status.Distance)
		ok = false
	}

	// Compare per-source counts against the local split manifest.
	pages := pagestore.New(cfg.Data.PagesDir)
	if top, err := pages.LoadTopManifest(); err == nil {
		fmt.Println("\n=== Sources ===")
		names := make([]string, 0, len(top.Results))
		for name := range top.Results {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			report := top.Results[name]
			if report.Status != "success" {
				continue
			}
			count, err := vstore.Count(ctx, name)
			if err != nil {
				fmt.Printf("  %s: count failed: %v\n", name, err)
				ok = false
				continue
			}
			marker := "OK"
			if count != uint64(report.PageCount) {
				marker = fmt.Sprintf("MISMATCH (expected %d)", report.PageCount)
				ok = false
			}
			fmt.Printf("  %s: %d points %s\n", name, count, marker)
		}
	} else {
		fmt.Println("\nNo local split manifest, skipping source count checks.")
	}

	// Sample queries exercise the embedding provider and the live index,
	// including at least one source-filtered search.
	if status.PointsCount > 0 {
		embedding := createEmbedding(cfg)
		defer embedding.Close()

		engine := search.New(search.Config{
			Store:        vstore,
			Embedding:    embedding,
			DefaultLimit: cfg.Search.DefaultLimit,
			MaxLimit:     cfg.Search.MaxLimit,
			PreviewChars: cfg.Search.PreviewChars,
		})

		fmt.Println("\n=== Sample queries ===")
		for _, res := range engine.RunChecks(ctx, search.DefaultSampleChecks()) {
			marker := "OK"
			if !res.Passed {
				marker = "FAILED: " + res.Reason
				ok = false
			}
			fmt.Printf("  %s (%q): %s\n", res.Check.Description, res.Check.Query, marker)
		}
	} else {
		fmt.Println("\nCollection is empty, skipping sample queries.")
	}

	if !ok {
		os.Exit(1)
	}
	fmt.Println("\nCollection is valid.")
}

func runSearch(query string, limit int, source string) {
	cfg := loadConfig()

	ctx, cancel := signalContext()
	defer cancel()

	vstore := createStore(cfg)
	defer vstore.Close()

	embedding := createEmbedding(cfg)
	defer embedding.Close()

	engine := search.New(search.Config{
		Store:        vstore,
		Embedding:    embedding,
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
		PreviewChars: cfg.Search.PreviewChars,
	})

	results, err := engine.Search(ctx, &types.SearchRequest{
		Query:  query,
		Limit:  limit,
		Source: source,
	})
	if err != nil {
		slog.Error("search failed", "error", err)
		os.Exit(1)
	}

	fmt.Println(engine.FormatResults(query, results))
}

func runServe() {
	cfg := loadConfig()

	ctx, cancel := signalContext()
	defer cancel()

	vstore := createStore(cfg)
	embedding := createEmbedding(cfg)

	defer func() {
		vstore.Close()
		embedding.Close()
	}()

	if err := embedding.Available(ctx); err != nil {
		slog.Error("embedding provider not available", "provider", embedding.Name(), "error", err)
		os.Exit(1)
	}
	if err := embedding.Warmup(ctx); err != nil {
		slog.Warn("embedding warmup failed", "error", err)
	}

	server, err := mcp.New(mcp.Config{
		Config:    cfg,
		Store:     vstore,
		Embedding: embedding,
		Version:   version,
	})
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	slog.Info("MCP server running (press Ctrl+C to stop)")
	if err := server.ServeStdio(); err != nil {
		if ctx.Err() != nil {
			slog.Info("server stopped")
		} else {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

func runWatch(debounceMs int) {
	cfg := loadConfig()

	ctx, cancel := signalContext()
	defer cancel()

	splitter := ingest.NewSplitter(cfg.Data.RawDir, pagestore.New(cfg.Data.PagesDir))
	watcher, err := ingest.NewWatcher(ingest.WatcherConfig{
		RawDir:       cfg.Data.RawDir,
		Sources:      cfg.Sources,
		Splitter:     splitter,
		DebounceTime: time.Duration(debounceMs) * time.Millisecond,
	})
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}

	if err := watcher.Watch(ctx); err != nil {
		slog.Error("watcher failed", "error", err)
		os.Exit(1)
	}
}

func runStatus() {
	cfg := loadConfig()

	ctx, cancel := signalContext()
	defer cancel()

	vstore := createStore(cfg)
	defer vstore.Close()

	status, err := vstore.Info(ctx)
	if err != nil {
		slog.Error("failed to get collection info", "error", err)
		os.Exit(1)
	}

	names := make([]string, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		names = append(names, src.Name)
	}
	if counts, err := vstore.SourceCounts(ctx, names); err == nil {
		status.Sources = counts
	}

	output, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(output))
}

func runConfigInit() {
	root := configRoot()
	cfg := config.DefaultConfig()

	if err := config.Save(root, cfg); err != nil {
		slog.Error("failed to save config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Created config at %s\n", config.ConfigPath(root))
}

func runConfigValidate() {
	cfg, warnings, err := config.Load(configRoot())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	for _, w := range warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	errs := config.Validate(cfg)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Printf("Error: %v\n", e)
		}
		os.Exit(1)
	}

	fmt.Println("Configuration is valid")
}
