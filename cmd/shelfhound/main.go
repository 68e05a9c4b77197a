package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shelfhound/shelfhound/internal/config"
	"github.com/shelfhound/shelfhound/internal/crawl"
	"github.com/shelfhound/shelfhound/internal/fetcher"
	"github.com/shelfhound/shelfhound/internal/images"
	"github.com/shelfhound/shelfhound/internal/observability"
	"github.com/shelfhound/shelfhound/internal/record"
	"github.com/shelfhound/shelfhound/internal/report"
	"github.com/shelfhound/shelfhound/internal/resolve"
	"github.com/shelfhound/shelfhound/internal/sink"
)

var (
	cfgFile     string
	verbose     bool
	outputDir   string
	seedList    string
	delay       string
	category    string
	linkPattern string
	sinkList    string
	sinkMode    string
	maxImages   int
	noImages    bool
	metricsOn   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "shelfhound [seed-url...]",
		Short: "Shelfhound — retailer category page scraper",
		Long: `Shelfhound walks retailer category pages one request at a time and
turns product listings into clean, deduplicated records.

Features:
  • Structured-metadata-first field extraction with markup fallbacks
  • Stable product identities — reruns never duplicate records
  • Subcategory-grouped image downloads with positional filenames
  • CSV, SQLite, SQL dump, Postgres and MongoDB sinks
  • Politeness delay before every request, strictly sequential
  • Prometheus metrics endpoint (optional)

Run without arguments to crawl the configured seeds, or pass seed URLs
to override them.`,
		Args:         cobra.ArbitraryArgs,
		RunE:         runCrawl,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	rootCmd.Flags().StringVar(&seedList, "seeds", "", "comma-separated category page URLs")
	rootCmd.Flags().StringVar(&delay, "delay", "", "politeness delay before every page fetch (e.g. 800ms)")
	rootCmd.Flags().StringVar(&category, "category", "", "category label stamped on every record")
	rootCmd.Flags().StringVar(&linkPattern, "link-pattern", "", "substring an anchor must contain to count as a product link")
	rootCmd.Flags().StringVar(&sinkList, "sinks", "", "comma-separated sinks: csv, sqlite, sqldump, postgres, mongo")
	rootCmd.Flags().StringVar(&sinkMode, "mode", "", "sink write mode: replace or append")
	rootCmd.Flags().IntVar(&maxImages, "max-images", 0, "images to download per product (0 = use config default)")
	rootCmd.Flags().BoolVar(&noImages, "no-images", false, "skip the image download phase")
	rootCmd.Flags().BoolVar(&metricsOn, "metrics", false, "serve Prometheus metrics during the run")

	rootCmd.AddCommand(probeCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runCrawl executes the full pipeline: crawl, image downloads, summary.
func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg, args)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, seed := range cfg.Crawl.Seeds {
		if err := config.ValidateURL(seed); err != nil {
			return fmt.Errorf("invalid seed %q: %w", seed, err)
		}
	}

	logger := setupLogger(&cfg.Logging)

	if err := os.MkdirAll(cfg.Crawl.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks, err := sink.New(ctx, &cfg.Sinks, cfg.Crawl.OutputDir, logger)
	if err != nil {
		return fmt.Errorf("open sinks: %w", err)
	}

	httpFetcher, err := fetcher.NewHTTPFetcher(cfg, logger)
	if err != nil {
		sinks.Close()
		return fmt.Errorf("create fetcher: %w", err)
	}
	polite := fetcher.NewPoliteFetcher(httpFetcher, cfg.Crawl.Delay, cfg.Images.Delay, logger)
	defer polite.Close()

	resolver := resolve.New(&cfg.Resolver, logger)
	builder := record.NewBuilder(cfg.Crawl.Category, logger)
	crawler := crawl.New(cfg, polite, resolver, builder, sinks, logger)

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(logger)
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
		crawler.SetMetrics(metrics)
	}

	logger.Info("starting crawl",
		"seeds", len(cfg.Crawl.Seeds),
		"category", cfg.Crawl.Category,
		"delay", cfg.Crawl.Delay,
		"output", cfg.Crawl.OutputDir,
		"sinks", sinks.Names(),
	)

	session, runErr := crawler.Run(ctx)

	var imgRes *images.Result
	if cfg.Images.Enabled && len(session.Products) > 0 {
		store, err := images.NewFSStore(filepath.Join(cfg.Crawl.OutputDir, cfg.Images.Dir))
		if err != nil {
			logger.Error("image directory unavailable, skipping downloads", "error", err)
		} else {
			coord := images.New(&cfg.Images, polite, store, logger)
			if metrics != nil {
				coord.SetMetrics(metrics)
			}
			imgRes = coord.Run(ctx, session.Products)
		}
	}

	if err := sinks.Close(); err != nil {
		logger.Error("closing sinks", "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("crawl failed: %w", runErr)
	}

	if ctx.Err() != nil {
		fmt.Println("\n⚠️  Crawl interrupted — partial results written")
	} else {
		fmt.Println("\n✅ Crawl complete")
	}
	fmt.Println()
	fmt.Print(report.Summary(session, imgRes, outputPaths(cfg)))
	return nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("shelfhound %s\n", config.Version)
		},
	}
}

// setupLogger creates a structured logger from the logging config.
// The --verbose flag forces debug level regardless of config.
func setupLogger(cfg *config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	out := os.Stderr
	if strings.ToLower(cfg.Output) == "stdout" {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(out, opts)
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	}
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
// Positional arguments win over --seeds, which wins over the config.
func applyCLIOverrides(cfg *config.Config, args []string) {
	if len(args) > 0 {
		cfg.Crawl.Seeds = args
	} else if seedList != "" {
		cfg.Crawl.Seeds = splitList(seedList)
	}
	if delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			cfg.Crawl.Delay = d
		}
	}
	if category != "" {
		cfg.Crawl.Category = category
	}
	if linkPattern != "" {
		cfg.Crawl.LinkPattern = linkPattern
	}
	if outputDir != "" {
		cfg.Crawl.OutputDir = outputDir
	}
	if sinkList != "" {
		cfg.Sinks.Enabled = splitList(sinkList)
	}
	if sinkMode != "" {
		cfg.Sinks.Mode = strings.ToLower(sinkMode)
	}
	if maxImages > 0 {
		cfg.Images.MaxPerProduct = maxImages
	}
	if noImages {
		cfg.Images.Enabled = false
	}
	if metricsOn {
		cfg.Metrics.Enabled = true
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
}

// outputPaths lists the places this run writes to, for the summary.
func outputPaths(cfg *config.Config) []string {
	var outputs []string
	for _, name := range cfg.Sinks.Enabled {
		switch name {
		case "csv":
			outputs = append(outputs, filepath.Join(cfg.Crawl.OutputDir, cfg.Sinks.CSVFile))
		case "sqlite":
			outputs = append(outputs, filepath.Join(cfg.Crawl.OutputDir, cfg.Sinks.SQLiteFile))
		case "sqldump":
			outputs = append(outputs, filepath.Join(cfg.Crawl.OutputDir, cfg.Sinks.DumpFile))
		case "postgres":
			outputs = append(outputs, fmt.Sprintf("postgres table %q", cfg.Sinks.Postgres.Table))
		case "mongo":
			outputs = append(outputs, fmt.Sprintf("mongodb collection %q", cfg.Sinks.Mongo.Database+"."+cfg.Sinks.Mongo.Collection))
		}
	}
	if cfg.Images.Enabled {
		outputs = append(outputs, filepath.Join(cfg.Crawl.OutputDir, cfg.Images.Dir)+string(os.PathSeparator))
	}
	return outputs
}

// splitList parses a comma-separated flag value.
func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
