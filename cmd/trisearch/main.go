// Package main is the trisearch CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
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

	"github.com/hyperjump/trisearch/internal/cli"
	"github.com/hyperjump/trisearch/internal/config"
	"github.com/hyperjump/trisearch/internal/models"
	"github.com/hyperjump/trisearch/internal/search"
	"github.com/hyperjump/trisearch/internal/server"
	"github.com/hyperjump/trisearch/internal/storage"
	"github.com/hyperjump/trisearch/internal/watcher"
	"github.com/hyperjump/trisearch/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/trisearch/config.yaml"

var errMissingQuery = errors.New("missing search query")

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// When path is the default and no config file exists at all, the built-in defaults are used.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
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
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// applyFlagOverrides layers command-line flags over the loaded config and revalidates it.
func applyFlagOverrides(cfg *config.Config, strategy string, debug bool) error {
	if debug {
		cfg.Debug = true
	}
	if strategy != "" {
		cfg.Search.Strategy = strategy
	}
	return cfg.Validate()
}

// parseCommand splits the command line into a subcommand and its arguments.
// With no subcommand, or when the first argument is a flag, the interactive loop runs.
func parseCommand(args []string) (string, []string) {
	if len(args) == 0 {
		return "repl", nil
	}
	switch args[0] {
	case "--version", "-v":
		return "version", args[1:]
	case "--help", "-h":
		return "help", args[1:]
	}
	if strings.HasPrefix(args[0], "-") {
		return "repl", args
	}
	return args[0], args[1:]
}

func main() {
	command, args := parseCommand(os.Args[1:])
	var err error
	switch command {
	case "repl":
		err = runREPL(args)
	case "search":
		err = runSearch(args)
	case "server":
		err = runServer(args)
	case "status":
		err = runStatus(args)
	case "version":
		fmt.Printf("trisearch version %s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		if !errors.Is(err, errMissingQuery) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func runREPL(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = open the database directly)")
	limit := fs.Int("limit", 0, "number of results per query (0 = search.default_limit)")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	strategy := fs.String("strategy", "", "lookup strategy: sequential, concurrent, or batch (default from config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlagOverrides(cfg, *strategy, *debug); err != nil {
		return err
	}
	logger, err := utils.NewCLILogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	logger.Debug("config loaded", zap.String("config_path", resolvedConfigPath))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var searcher cli.Searcher
	if *serverURL != "" {
		searcher = cli.NewHTTPClient(*serverURL)
	} else {
		components, err := initializeComponents(ctx, cfg, logger, true)
		if err != nil {
			return err
		}
		defer components.Close()
		searcher = components.Engine
	}

	repl := cli.NewREPL(searcher, os.Stdin, os.Stdout,
		cli.WithFormat(format),
		cli.WithLimit(*limit),
		cli.WithLogger(logger),
	)
	return runUntilDone(ctx, os.Stdout, repl.Run)
}

// runUntilDone runs fn and returns as soon as ctx is cancelled; a read blocked on stdin
// cannot observe cancellation, so the caller's deferred cleanup must not wait for it.
func runUntilDone(ctx context.Context, out io.Writer, fn func(context.Context) error) error {
	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		fmt.Fprintln(out)
		return nil
	}
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: trisearch search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Queries are matched by overlapping three-character sequences, so partial words and
misspellings still find products. Queries shorter than three characters match nothing.

Examples:
  trisearch search wireless mouse
  trisearch search "wireless mouse"                 # same as above
  trisearch search --limit 3 --output json keybord  # misspelled, still matches
  trisearch search --server http://localhost:8080 headphones
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting (e.g. "wireless mouse" vs wireless mouse).
// The joined text is passed to the engine as is.
func buildSearchQuery(args []string) string {
	return strings.Join(args, " ")
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "trisearch search \"query\" -limit 3"
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

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = open the database directly)")
	limit := fs.Int("limit", 0, "number of results (0 = search.default_limit)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	strategy := fs.String("strategy", "", "lookup strategy: sequential, concurrent, or batch (default from config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(args))

	if fs.NArg() == 0 {
		printSearchUsage(fs)
		return errMissingQuery
	}
	queryStr := buildSearchQuery(fs.Args())
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	searchQuery := &models.SearchQuery{Query: queryStr, Limit: *limit}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serverURL != "" {
		return searchOnce(ctx, cli.NewHTTPClient(*serverURL), searchQuery, format, os.Stdout)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlagOverrides(cfg, *strategy, *debug); err != nil {
		return err
	}
	logger, err := utils.NewCLILogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer components.Close()
	return searchOnce(ctx, components.Engine, searchQuery, format, os.Stdout)
}

// searchOnce runs a single query and writes the results to w.
func searchOnce(ctx context.Context, searcher cli.Searcher, query *models.SearchQuery, format cli.SearchOutputFormat, w io.Writer) error {
	response, err := searcher.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if err := cli.WriteSearchResults(w, response, format); err != nil {
		return fmt.Errorf("output failed: %w", err)
	}
	return nil
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	strategy := fs.String("strategy", "", "lookup strategy: sequential, concurrent, or batch (default from config)")
	debug := fs.Bool("debug", false, "enable debug logging (queries, cache invalidation, etc.)")
	_ = fs.Parse(args)

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlagOverrides(cfg, *strategy, *debug); err != nil {
		return err
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug),
		zap.String("strategy", cfg.Search.Strategy),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer components.Close()

	srv := server.NewServer(components.Engine, components.Storage, &cfg.Server, logger, cfg)
	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	Strategy     string `json:"strategy"`
	Backend      string `json:"backend,omitempty"`
	DatabasePath string `json:"database_path,omitempty"`
	ReadOnly     bool   `json:"read_only,omitempty"`
	DefaultLimit int    `json:"default_limit,omitempty"`
	MaxLimit     int    `json:"max_limit,omitempty"`
	CacheSize    int    `json:"cache_size,omitempty"`
	WatchEnabled bool   `json:"watch_enabled,omitempty"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Products       int64                 `json:"products"`
	Tags           int64                 `json:"tags"`
	Associations   int64                 `json:"associations"`
	TagCache       *search.CacheStats    `json:"tag_cache,omitempty"`
	DiskUsageBytes *int64                `json:"disk_usage_bytes,omitempty"`
	Config         *statusConfigResponse `json:"config,omitempty"`
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", "", "server URL (empty = open the database directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var status *statusResponse
	if *serverURL != "" {
		status = &statusResponse{}
		if err := cli.NewHTTPClient(*serverURL).Status(ctx, status); err != nil {
			return fmt.Errorf("status failed: %w", err)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := applyFlagOverrides(cfg, "", *debug); err != nil {
			return err
		}
		logger, err := utils.NewCLILogger(cfg.Debug)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Sync()
		components, err := initializeComponents(ctx, cfg, logger, false)
		if err != nil {
			return err
		}
		defer components.Close()
		if status, err = collectStatus(ctx, components, cfg); err != nil {
			return err
		}
	}
	return writeStatus(os.Stdout, status, *outputFormat)
}

// collectStatus gathers index counts, cache counters and configuration from local components.
func collectStatus(ctx context.Context, c *Components, cfg *config.Config) (*statusResponse, error) {
	stats, err := c.Storage.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("count index rows: %w", err)
	}
	status := &statusResponse{
		Products:     stats.Products,
		Tags:         stats.Tags,
		Associations: stats.Associations,
		Config: &statusConfigResponse{
			Strategy:     c.Engine.Strategy(),
			Backend:      cfg.Storage.Backend,
			DatabasePath: cfg.Storage.DatabasePath,
			ReadOnly:     cfg.Storage.ReadOnly,
			DefaultLimit: cfg.Search.DefaultLimit,
			MaxLimit:     cfg.Search.MaxLimit,
			CacheSize:    cfg.Search.CacheSize,
			WatchEnabled: cfg.Watch.EnabledOrDefault(),
		},
	}
	if cacheStats, ok := c.Engine.CacheStats(); ok {
		status.TagCache = &cacheStats
	}
	if diskBytes, err := storage.DiskUsageBytes(storage.DatabaseFiles(cfg.Storage.DatabasePath)...); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func writeStatus(w io.Writer, status *statusResponse, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	case "text":
		fmt.Fprintf(w, "products:           %d   # catalog rows\n", status.Products)
		fmt.Fprintf(w, "tags:               %d   # distinct trigrams in the index\n", status.Tags)
		fmt.Fprintf(w, "associations:       %d   # trigram-to-product rows\n", status.Associations)
		if status.DiskUsageBytes != nil {
			fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + wal + shm on disk\n", *status.DiskUsageBytes)
		}
		if status.TagCache != nil {
			fmt.Fprintf(w, "tag_cache:          %d entries, %d hits, %d misses\n",
				status.TagCache.Size, status.TagCache.Hits, status.TagCache.Misses)
		}
		if status.Config != nil {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "# configuration")
			fmt.Fprintf(w, "strategy:           %s\n", status.Config.Strategy)
			if status.Config.Backend != "" {
				fmt.Fprintf(w, "backend:            %s\n", status.Config.Backend)
			}
			if status.Config.DatabasePath != "" {
				fmt.Fprintf(w, "database_path:      %s\n", status.Config.DatabasePath)
			}
			fmt.Fprintf(w, "read_only:          %t\n", status.Config.ReadOnly)
			if status.Config.DefaultLimit > 0 {
				fmt.Fprintf(w, "default_limit:      %d\n", status.Config.DefaultLimit)
			}
			if status.Config.MaxLimit > 0 {
				fmt.Fprintf(w, "max_limit:          %d\n", status.Config.MaxLimit)
			}
			fmt.Fprintf(w, "watch_enabled:      %t\n", status.Config.WatchEnabled)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q; use text or json", format)
	}
}

// Components holds initialized services. Close releases them in reverse order of creation.
type Components struct {
	Storage storage.Storage
	Engine  *search.Engine
	Watcher *watcher.Watcher
}

func (c *Components) Close() {
	if c.Watcher != nil {
		c.Watcher.Stop()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents opens the configured storage and builds the engine on top of it.
// When watch is set and the backend is SQLite, a database watcher clears the engine's
// tag cache whenever the database changes; a watcher that fails to start is logged and skipped.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, watch bool) (*Components, error) {
	store, err := openStorage(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	engine := search.NewEngine(store, &cfg.Search, search.WithLogger(logger))
	components := &Components{Storage: store, Engine: engine}

	if watch && cfg.Watch.EnabledOrDefault() && cfg.Storage.Backend == config.BackendSQLite {
		w := watcher.NewWatcher(cfg.Storage.DatabasePath, engine.InvalidateCache, watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			logger.Warn("database watcher not started", zap.String("database", cfg.Storage.DatabasePath), zap.Error(err))
		} else {
			components.Watcher = w
		}
	}

	logger.Debug("components initialized",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("database", cfg.Storage.DatabasePath),
		zap.Bool("read_only", cfg.Storage.ReadOnly),
		zap.String("strategy", cfg.Search.Strategy),
		zap.Bool("watching", components.Watcher != nil),
	)
	return components, nil
}

func openStorage(cfg config.StorageConfig, logger *zap.Logger) (storage.Storage, error) {
	if cfg.Backend == config.BackendMemory {
		logger.Warn("using an empty in-memory catalog; every search returns no results")
		return storage.NewMemoryStorage(), nil
	}
	var opts []storage.SQLiteOption
	if cfg.ReadOnly {
		opts = append(opts, storage.WithReadOnly())
	}
	return storage.NewSQLiteStorage(cfg.DatabasePath, opts...)
}

func printUsage() {
	fmt.Println(`trisearch - Trigram fuzzy search over a product catalog

Usage:
  trisearch [repl] [flags]           Interactive search loop (default)
  trisearch search [flags] <query>   Run a single search
  trisearch server [flags]           Start the HTTP server
  trisearch status [flags]           Show index/storage status
  trisearch version                  Show version
  trisearch help                     Show this help

Common Flags:
  --config string     Config file path (default: /usr/local/etc/trisearch/config.yaml,
                      or ./config.yaml when present; built-in defaults when neither exists)
  --debug             Enable debug logging
  --strategy string   Lookup strategy: sequential, concurrent, or batch (default from config)

REPL and Search Flags:
  --server string     Server URL; empty (default) opens the database directly
  --limit int         Number of results (default: search.default_limit, 10)
  --output string     Output format: text, compact, or json (default: text)

Status Flags:
  --server string     Server URL; empty (default) opens the database directly
  --output string     Output format: text or json (default: text)

In the interactive loop, type a query at the "Search DB: " prompt; type "exit" or press Ctrl-D to quit.

Examples:
  trisearch
  trisearch --config ./config.yaml --strategy batch
  trisearch search wireless mouse
  trisearch search --output json --limit 3 "usb c charger"
  trisearch server --debug
  trisearch status --output json`)
}
