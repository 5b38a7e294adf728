// Package main is the Curio CLI entry point.
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
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/curio/internal/adapter"
	"github.com/hyperjump/curio/internal/cli"
	"github.com/hyperjump/curio/internal/config"
	"github.com/hyperjump/curio/internal/encoder"
	"github.com/hyperjump/curio/internal/importer"
	"github.com/hyperjump/curio/internal/index"
	"github.com/hyperjump/curio/internal/meta"
	"github.com/hyperjump/curio/internal/models"
	"github.com/hyperjump/curio/internal/search"
	"github.com/hyperjump/curio/internal/server"
	"github.com/hyperjump/curio/internal/storage"
	"github.com/hyperjump/curio/internal/watcher"
	"github.com/hyperjump/curio/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/curio/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "curio server" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded (for saving, etc.).
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
	case "search":
		runSearch()
	case "feedback":
		runFeedback()
	case "reset":
		runReset()
	case "import":
		runImport()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("curio version %s\n", version)
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
	debug := fs.Bool("debug", false, "enable debug logging (per-query scoring, dataset reloads, etc.)")
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

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	reload := func(ctx context.Context) error {
		return reloadDataset(ctx, cfg, components, logger)
	}

	var watchSvc *watcher.Watcher
	if cfg.Dataset.Watch {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.New(
			[]string{cfg.Dataset.EmbeddingsPath, cfg.Dataset.MetadataPath},
			func(path string) {
				logger.Info("dataset file changed", zap.String("path", path))
				if err := reload(context.Background()); err != nil {
					logger.Warn("dataset reload failed", zap.String("path", path), zap.Error(err))
				}
			},
			watchOpts...,
		)
		watchCtx, watchCancel := context.WithCancel(context.Background())
		defer watchCancel()
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(components.Engine, components.Storage, cfg, logger, reload)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// printSearchUsage prints search subcommand usage and hints.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: curio search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Results are ranked by adapted similarity: raw CLIP similarity plus the
correction learned from this session's feedback.
  • Use --image to search by example image instead of text.
  • Use --filter field=value to restrict candidates by metadata (repeatable).
  • Use --exclude to hide images already placed on the canvas.

Examples:
  curio search stormy seascape with ships
  curio search "stormy seascape with ships"       # same as above
  curio search --image query.jpg                  # search by example
  curio search --filter artist=vermeer interior
  curio search --exclude 12,97 --limit 20 portrait
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchConfigPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func searchConfigPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "curio search \"query\" -limit 5"
// would otherwise leave -limit unparsed.
func searchArgsReorder(args []string) []string {
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

// parseFilterFlags turns repeated "field=value" strings into equality filters.
func parseFilterFlags(raw []string) ([]models.Filter, error) {
	filters := make([]models.Filter, 0, len(raw))
	for _, f := range raw {
		field, value, ok := strings.Cut(f, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("filter %q: expected field=value", f)
		}
		filters = append(filters, models.Filter{Field: field, Op: models.OpEq, Value: value})
	}
	return filters, nil
}

// parseExcludeIDs parses a comma-separated list of image IDs.
func parseExcludeIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("exclude id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// stringsFlag collects repeated flag values.
type stringsFlag []string

func (s *stringsFlag) String() string { return strings.Join(*s, ",") }

func (s *stringsFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])
	configPath := searchConfigPathFromArgs(searchArgs, defaultConfigPath)

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPathFlag := fs.String("config", configPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the dataset directly when server is not running)")
	limit := fs.Int("limit", 10, "number of results")
	imagePath := fs.String("image", "", "query by example: path to an image file")
	exclude := fs.String("exclude", "", "comma-separated image IDs to exclude")
	var filterFlags stringsFlag
	fs.Var(&filterFlags, "filter", "metadata filter as field=value (repeatable)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" && *imagePath == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
		format = cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	filters, err := parseFilterFlags(filterFlags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	excludeIDs, err := parseExcludeIDs(*exclude)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	req := &models.SearchRequest{
		Query:      queryStr,
		Filters:    filters,
		ExcludeIDs: excludeIDs,
		Limit:      *limit,
	}
	if *imagePath != "" {
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read image: %v\n", err)
			os.Exit(1)
		}
		req.Query = ""
		req.ImageData = data
	}

	if *serverURL != "" {
		// Use the HTTP API when the server is running, so the query sees the
		// live feedback session.
		response, err := searchViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct dataset access (when server is not running). The session starts
	// empty, so results are pure base similarity.
	cfg, _, err := loadConfig(*configPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	response, err := components.Engine.Search(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, req *models.SearchRequest) (*models.SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runFeedback() {
	fs := flag.NewFlagSet("feedback", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	weight := fs.Float64("weight", 1, "feedback weight in (0, 1]")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 2 {
		fmt.Println("Usage: curio feedback [flags] <image-id> <positive|negative>")
		os.Exit(1)
	}
	imageID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		fmt.Printf("Invalid image id %q\n", fs.Arg(0))
		os.Exit(1)
	}
	polarity := fs.Arg(1)
	if polarity != "positive" && polarity != "negative" {
		fmt.Println("Polarity must be \"positive\" or \"negative\"")
		os.Exit(1)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"image_id": imageID,
		"polarity": polarity,
		"weight":   *weight,
	})
	resp, err := http.Post(*serverURL+"/api/v1/feedback", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Printf("Feedback failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		FeedbackCount int `json:"feedback_count"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	fmt.Printf("Recorded %s feedback for image %d (%d events this session)\n", polarity, imageID, out.FeedbackCount)
}

func runReset() {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Post(*serverURL+"/api/v1/session/reset", "application/json", nil)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Printf("Reset failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		SessionID string `json:"session_id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	fmt.Printf("Session reset: %s\n", out.SessionID)
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	embeddingsPath := fs.String("embeddings", "", "embeddings file path (overrides config)")
	metadataPath := fs.String("metadata", "", "metadata file path, .csv or .xlsx (overrides config)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *embeddingsPath != "" {
		cfg.Dataset.EmbeddingsPath = *embeddingsPath
	}
	if *metadataPath != "" {
		cfg.Dataset.MetadataPath = *metadataPath
	}
	if cfg.Dataset.EmbeddingsPath == "" {
		fmt.Println("Usage: curio import --embeddings <file> [--metadata <file>]")
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	records, err := importer.Import(cfg.Dataset.EmbeddingsPath, cfg.Dataset.MetadataPath)
	if err != nil {
		fmt.Printf("Import failed: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fmt.Printf("Failed to open catalog: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.ReplaceDataset(context.Background(), records); err != nil {
		fmt.Printf("Failed to store catalog: %v\n", err)
		os.Exit(1)
	}

	if cfg.Storage.IndexPath != "" {
		idx, err := index.Build(records)
		if err != nil {
			fmt.Printf("Failed to build index: %v\n", err)
			os.Exit(1)
		}
		if err := idx.Save(cfg.Storage.IndexPath); err != nil {
			fmt.Printf("Failed to save index: %v\n", err)
			os.Exit(1)
		}
	}

	dims := 0
	if len(records) > 0 {
		dims = len(records[0].Embedding)
	}
	fmt.Printf("Imported %d images (%d dimensions)\n", len(records), dims)
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	IndexType      string `json:"index_type"`
	DefaultLimit   int    `json:"default_limit,omitempty"`
	MaxLimit       int    `json:"max_limit,omitempty"`
	DatabasePath   string `json:"database_path,omitempty"`
	EmbeddingsPath string `json:"embeddings_path,omitempty"`
	MetadataPath   string `json:"metadata_path,omitempty"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Images         int                   `json:"images"`
	Dimensions     int                   `json:"dimensions"`
	CatalogImages  *int64                `json:"catalog_images,omitempty"`
	SessionID      string                `json:"session_id"`
	FeedbackCount  int                   `json:"feedback_count"`
	DiskUsageBytes *int64                `json:"disk_usage_bytes,omitempty"`
	Config         *statusConfigResponse `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the dataset directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		status = statusResponse{
			Images:        components.Engine.IndexSize(),
			Dimensions:    components.Engine.Dimensions(),
			SessionID:     components.Engine.SessionID(),
			FeedbackCount: components.Engine.FeedbackCount(),
			Config: &statusConfigResponse{
				IndexType:      cfg.Search.IndexType,
				DefaultLimit:   cfg.Search.DefaultLimit,
				MaxLimit:       cfg.Search.MaxLimit,
				DatabasePath:   cfg.Storage.DatabasePath,
				EmbeddingsPath: cfg.Dataset.EmbeddingsPath,
				MetadataPath:   cfg.Dataset.MetadataPath,
			},
		}
		if count, err := components.Storage.CountImages(context.Background()); err == nil {
			status.CatalogImages = &count
		}
		diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.IndexPath, cfg.Storage.MetaIndexPath)
		if err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("images:             %d   # images in the active index\n", status.Images)
		fmt.Printf("dimensions:         %d   # embedding dimensions\n", status.Dimensions)
		if status.CatalogImages != nil {
			fmt.Printf("catalog_images:     %d   # images in the persistent catalog\n", *status.CatalogImages)
		}
		fmt.Printf("session_id:         %s\n", status.SessionID)
		fmt.Printf("feedback_count:     %d   # feedback events this session\n", status.FeedbackCount)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:   %d   # catalog + indices on disk\n", *status.DiskUsageBytes)
		}
		if status.Config != nil {
			fmt.Println()
			fmt.Println("# configuration")
			fmt.Printf("index_type:         %s\n", status.Config.IndexType)
			if status.Config.DefaultLimit > 0 {
				fmt.Printf("default_limit:      %d\n", status.Config.DefaultLimit)
			}
			if status.Config.MaxLimit > 0 {
				fmt.Printf("max_limit:          %d\n", status.Config.MaxLimit)
			}
			if status.Config.DatabasePath != "" {
				fmt.Printf("database_path:      %s\n", status.Config.DatabasePath)
			}
			if status.Config.EmbeddingsPath != "" {
				fmt.Printf("embeddings_path:    %s\n", status.Config.EmbeddingsPath)
			}
			if status.Config.MetadataPath != "" {
				fmt.Printf("metadata_path:      %s\n", status.Config.MetadataPath)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Storage storage.Storage
	Encoder encoder.Encoder
	Meta    *meta.Index
	Adapter *adapter.Adapter
	Engine  *search.Engine
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Encoder != nil {
		_ = c.Encoder.Close()
	}
	if c.Meta != nil {
		_ = c.Meta.Close()
	}
}

// loadDatasetRecords resolves the dataset in priority order: dataset files
// when configured, then the persistent catalog, then a previously saved index.
func loadDatasetRecords(ctx context.Context, cfg *config.Config, store storage.Storage, logger *zap.Logger) ([]*models.ImageRecord, error) {
	if cfg.Dataset.EmbeddingsPath != "" {
		records, err := importer.Import(cfg.Dataset.EmbeddingsPath, cfg.Dataset.MetadataPath)
		if err != nil {
			return nil, fmt.Errorf("import dataset: %w", err)
		}
		if err := store.ReplaceDataset(ctx, records); err != nil {
			logger.Warn("catalog update failed", zap.Error(err))
		}
		return records, nil
	}
	records, err := store.LoadRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if len(records) > 0 {
		return records, nil
	}
	if cfg.Storage.IndexPath != "" {
		idx, loadErr := index.Load(cfg.Storage.IndexPath)
		if loadErr != nil {
			return nil, fmt.Errorf("load saved index: %w", loadErr)
		}
		if idx != nil {
			return idx.Records(), nil
		}
	}
	return nil, nil
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var enc encoder.Encoder
	onnxEncoder, err := encoder.NewONNXEncoder(
		cfg.Encoder.TextModelPath,
		cfg.Encoder.ImageModelPath,
		cfg.Encoder.Dimensions,
		cfg.Encoder.MaxTokens,
		cfg.Encoder.CacheSize,
	)
	if err != nil {
		logger.Warn("CLIP models unavailable, using deterministic mock encoder", zap.Error(err))
		enc = encoder.NewMockEncoder(cfg.Encoder.Dimensions)
	} else {
		enc = onnxEncoder
	}

	ctx := context.Background()
	records, err := loadDatasetRecords(ctx, cfg, store, logger)
	if err != nil {
		_ = store.Close()
		_ = enc.Close()
		return nil, err
	}
	// No dataset yet is a valid state: the server starts and searches fail
	// with "no dataset loaded" until an import or reload supplies one.
	var idx index.Index
	if len(records) > 0 {
		idx, err = index.New(cfg.Search.IndexType, records)
		if err != nil {
			_ = store.Close()
			_ = enc.Close()
			return nil, fmt.Errorf("failed to build index: %w", err)
		}
		logger.Info("dataset loaded",
			zap.Int("images", idx.Size()),
			zap.Int("dimensions", idx.Dimensions()),
		)
	} else {
		logger.Warn("no dataset configured; import one or set dataset paths in config")
	}

	metaIndex, err := meta.New(cfg.Storage.MetaIndexPath)
	if err != nil {
		_ = store.Close()
		_ = enc.Close()
		return nil, fmt.Errorf("failed to initialize metadata index: %w", err)
	}
	if err := metaIndex.Reset(ctx, records); err != nil {
		logger.Warn("metadata index rebuild failed", zap.Error(err))
	}

	dims := cfg.Encoder.Dimensions
	if idx != nil {
		dims = idx.Dimensions()
	}
	adp := adapter.New(dims, cfg.Search.Adapter)
	engine := search.NewEngine(idx, enc, adp, metaIndex, &cfg.Search, logger)

	return &Components{
		Storage: store,
		Encoder: enc,
		Meta:    metaIndex,
		Adapter: adp,
		Engine:  engine,
	}, nil
}

// reloadDataset re-imports the dataset files and swaps the result into the
// engine. The feedback session resets with the swap.
func reloadDataset(ctx context.Context, cfg *config.Config, components *Components, logger *zap.Logger) error {
	records, err := loadDatasetRecords(ctx, cfg, components.Storage, logger)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no dataset available to load")
	}
	idx, err := index.New(cfg.Search.IndexType, records)
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	if err := components.Meta.Reset(ctx, records); err != nil {
		logger.Warn("metadata index rebuild failed", zap.Error(err))
	}
	components.Engine.SetDataset(idx, components.Meta)
	return nil
}

func printUsage() {
	fmt.Println(`curio - Session-adaptive image search

Usage:
  curio server [flags]                       Start the HTTP server
  curio search [flags] <query>               Search images by text or example image
  curio feedback [flags] <id> <polarity>     Record feedback for the live session
  curio reset [flags]                        Reset the live feedback session
  curio import [flags]                       Import dataset files into the catalog
  curio status [flags]                       Show engine/dataset status
  curio version                              Show version
  curio help                                 Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/curio/config.yaml)
  --debug            Enable debug logging (per-query scoring, dataset reloads, etc.)

Search Flags:
  --config string    Config file path (for direct dataset mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to load the dataset directly.
  --limit int        Number of results (default: 10)
  --image string     Query by example: path to an image file
  --filter value     Metadata filter as field=value (repeatable)
  --exclude string   Comma-separated image IDs to exclude
  --output string    Output format: text or json (default: text)

Feedback Flags:
  --server string    Server URL (default: http://localhost:8080)
  --weight float     Feedback weight in (0, 1] (default: 1)

Import Flags:
  --config string      Config file path
  --embeddings string  Embeddings file path (overrides config)
  --metadata string    Metadata file path, .csv or .xlsx (overrides config)

Status Flags:
  --config string    Config file path (for direct dataset mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct dataset mode.
  --output string    Output format: text or json (default: text)

Examples:
  curio server
  curio import --embeddings embeddings.bin --metadata paintings.csv
  curio search "stormy seascape with ships"
  curio search --image query.jpg --limit 20
  curio search --filter artist=vermeer interior
  curio feedback 42 positive
  curio feedback 97 negative --weight 0.5
  curio reset
  curio status --output json`)
}
