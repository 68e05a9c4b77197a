// Package shelfhound provides a high-level API for embedding the
// scraper as a library.
//
// Example usage:
//
//	scraper := shelfhound.New(
//	    shelfhound.WithSeeds("https://shop.example.com/products/holiday"),
//	    shelfhound.WithCategory("Holiday"),
//	    shelfhound.WithOutputDir("./output"),
//	    shelfhound.WithSinks("csv", "sqlite"),
//	)
//
//	report, err := scraper.Run(context.Background())
package shelfhound

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shelfhound/shelfhound/internal/config"
	"github.com/shelfhound/shelfhound/internal/crawl"
	"github.com/shelfhound/shelfhound/internal/fetcher"
	"github.com/shelfhound/shelfhound/internal/images"
	"github.com/shelfhound/shelfhound/internal/record"
	"github.com/shelfhound/shelfhound/internal/report"
	"github.com/shelfhound/shelfhound/internal/resolve"
	"github.com/shelfhound/shelfhound/internal/sink"
	"github.com/shelfhound/shelfhound/internal/types"
)

// Product is one scraped record. Fields that could not be resolved
// hold "Unknown".
type Product struct {
	Identity    string
	Title       string
	Price       string
	UnitPrice   string
	Description string
	Brand       string
	SKU         string
	Category    string
	Subcategory string
	URL         string
	ImageURLs   []string
}

// Report summarizes a completed run.
type Report struct {
	RunID             string
	Products          []Product
	DuplicatesSkipped int
	PagesFailed       int
	ImagesDownloaded  int
	ImagesSkipped     int
	Elapsed           time.Duration

	// Summary is the rendered per-subcategory table, ready to print.
	Summary string
}

// Option configures a Scraper.
type Option func(*config.Config)

// WithSeeds sets the category pages to walk.
func WithSeeds(urls ...string) Option {
	return func(c *config.Config) { c.Crawl.Seeds = urls }
}

// WithCategory sets the label stamped on every record.
func WithCategory(label string) Option {
	return func(c *config.Config) { c.Crawl.Category = label }
}

// WithLinkPattern sets the substring an anchor must contain to count
// as a product link.
func WithLinkPattern(pattern string) Option {
	return func(c *config.Config) { c.Crawl.LinkPattern = pattern }
}

// WithDelay sets the politeness delay before every page fetch.
func WithDelay(d time.Duration) Option {
	return func(c *config.Config) { c.Crawl.Delay = d }
}

// WithOutputDir sets where sinks and images write.
func WithOutputDir(dir string) Option {
	return func(c *config.Config) { c.Crawl.OutputDir = dir }
}

// WithSinks selects the output backends (csv, sqlite, sqldump,
// postgres, mongo).
func WithSinks(names ...string) Option {
	return func(c *config.Config) { c.Sinks.Enabled = names }
}

// WithAppendMode keeps previous output and upserts on product identity
// instead of wiping it at the start of the run.
func WithAppendMode() Option {
	return func(c *config.Config) { c.Sinks.Mode = config.ModeAppend }
}

// WithMaxImages sets how many images to download per product.
func WithMaxImages(n int) Option {
	return func(c *config.Config) { c.Images.MaxPerProduct = n }
}

// WithoutImages skips the image download phase.
func WithoutImages() Option {
	return func(c *config.Config) { c.Images.Enabled = false }
}

// WithUserAgent sets a custom User-Agent.
func WithUserAgent(ua string) Option {
	return func(c *config.Config) { c.Fetcher.UserAgent = ua }
}

// Scraper is the high-level entry point for library use.
type Scraper struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New builds a Scraper from the default configuration plus options.
func New(opts ...Option) *Scraper {
	cfg := config.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Scraper{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
}

// SetLogger replaces the default stderr logger.
func (s *Scraper) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Run executes the full pipeline: open sinks, crawl every seed in
// order, download images, close sinks, and return the report. The
// error is non-nil only when the whole run failed; individual page
// failures are recorded in the report.
func (s *Scraper) Run(ctx context.Context) (*Report, error) {
	if err := config.Validate(s.cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := os.MkdirAll(s.cfg.Crawl.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	sinks, err := sink.New(ctx, &s.cfg.Sinks, s.cfg.Crawl.OutputDir, s.logger)
	if err != nil {
		return nil, err
	}

	httpFetcher, err := fetcher.NewHTTPFetcher(s.cfg, s.logger)
	if err != nil {
		sinks.Close()
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	polite := fetcher.NewPoliteFetcher(httpFetcher, s.cfg.Crawl.Delay, s.cfg.Images.Delay, s.logger)
	defer polite.Close()

	crawler := crawl.New(s.cfg, polite,
		resolve.New(&s.cfg.Resolver, s.logger),
		record.NewBuilder(s.cfg.Crawl.Category, s.logger),
		sinks, s.logger)

	session, runErr := crawler.Run(ctx)

	var imgRes *images.Result
	if s.cfg.Images.Enabled && len(session.Products) > 0 {
		store, err := images.NewFSStore(filepath.Join(s.cfg.Crawl.OutputDir, s.cfg.Images.Dir))
		if err != nil {
			s.logger.Error("image directory unavailable, skipping downloads", "error", err)
		} else {
			coord := images.New(&s.cfg.Images, polite, store, s.logger)
			imgRes = coord.Run(ctx, session.Products)
		}
	}

	if err := sinks.Close(); err != nil {
		s.logger.Error("closing sinks", "error", err)
	}
	if runErr != nil {
		return nil, runErr
	}

	rep := &Report{
		RunID:             session.ID,
		DuplicatesSkipped: session.Stats.DuplicatesSkipped,
		PagesFailed:       session.Stats.PagesFailed,
		Elapsed:           session.Elapsed(),
		Summary:           report.Summary(session, imgRes, nil),
	}
	if imgRes != nil {
		rep.ImagesDownloaded = imgRes.Downloaded
		rep.ImagesSkipped = imgRes.Skipped
	}
	for _, p := range session.Products {
		rep.Products = append(rep.Products, exportProduct(p))
	}
	return rep, nil
}

func exportProduct(p *types.Product) Product {
	return Product{
		Identity:    p.Identity,
		Title:       p.Title,
		Price:       p.Price,
		UnitPrice:   p.UnitPrice,
		Description: p.Description,
		Brand:       p.Brand,
		SKU:         p.SKU,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		URL:         p.URL,
		ImageURLs:   append([]string(nil), p.ImageURLs...),
	}
}
