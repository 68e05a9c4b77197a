package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shelfhound/shelfhound/internal/config"
	"github.com/shelfhound/shelfhound/internal/fetcher"
	"github.com/shelfhound/shelfhound/internal/observability"
	"github.com/shelfhound/shelfhound/internal/record"
	"github.com/shelfhound/shelfhound/internal/resolve"
	"github.com/shelfhound/shelfhound/internal/types"
)

// State represents the crawler's current lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateFetchingCategory
	StateDiscoveringLinks
	StateFetchingProduct
	StateResolving
	StateRecording
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingCategory:
		return "fetching_category"
	case StateDiscoveringLinks:
		return "discovering_links"
	case StateFetchingProduct:
		return "fetching_product"
	case StateResolving:
		return "resolving"
	case StateRecording:
		return "recording"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// categoryRetries is the number of immediate re-attempts after a failed
// category page fetch. Product pages are never retried.
const categoryRetries = 1

// Sink receives recorded products as the crawl progresses.
type Sink interface {
	Store(products []*types.Product) error
}

// Crawler walks category listings strictly sequentially: fetch the
// listing, discover product links, then visit each product page in page
// order. Every fetch goes through the configured fetcher, so politeness
// delays apply uniformly to category and product requests alike.
type Crawler struct {
	cfg      *config.Config
	fetcher  fetcher.Fetcher
	resolver *resolve.Resolver
	builder  *record.Builder
	sink     Sink
	metrics  *observability.Metrics
	logger   *slog.Logger

	state   State
	session *Session
}

// New creates a Crawler. sink may be nil when records only need to
// accumulate in the session.
func New(cfg *config.Config, f fetcher.Fetcher, r *resolve.Resolver, b *record.Builder, sink Sink, logger *slog.Logger) *Crawler {
	return &Crawler{
		cfg:      cfg,
		fetcher:  f,
		resolver: r,
		builder:  b,
		sink:     sink,
		logger:   logger.With("component", "crawler"),
		state:    StateIdle,
	}
}

// SetMetrics attaches operational counters. Optional; without it the
// crawler only keeps session stats.
func (c *Crawler) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

// State returns the crawler's current phase.
func (c *Crawler) State() State {
	return c.state
}

// Session returns the session of the current or most recent run.
func (c *Crawler) Session() *Session {
	return c.session
}

// Run crawls every configured seed in order and returns the session.
// Individual page failures are logged and skipped; the run itself only
// fails when every seed page is unreachable.
func (c *Crawler) Run(ctx context.Context) (*Session, error) {
	c.session = NewSession()
	c.logger.Info("crawl starting",
		"run_id", c.session.ID,
		"seeds", len(c.cfg.Crawl.Seeds),
		"delay", c.cfg.Crawl.Delay)

	failed := 0
	for i, seed := range c.cfg.Crawl.Seeds {
		if ctx.Err() != nil {
			c.logger.Warn("crawl interrupted",
				"remaining_seeds", len(c.cfg.Crawl.Seeds)-i)
			break
		}
		if err := c.crawlSeed(ctx, seed); err != nil {
			failed++
			c.session.Stats.CategoriesFailed++
			if c.metrics != nil {
				c.metrics.CategoriesFailed.Add(1)
			}
			c.logger.Error("category page unreachable", "seed", seed, "error", err)
		}
	}

	c.state = StateDone
	c.logger.Info("crawl finished",
		"run_id", c.session.ID,
		"elapsed", c.session.Elapsed(),
		"stats", c.session.Stats.Snapshot())

	if failed > 0 && failed == len(c.cfg.Crawl.Seeds) {
		return c.session, fmt.Errorf("%d of %d category pages unreachable: %w",
			failed, len(c.cfg.Crawl.Seeds), types.ErrAllSeedsFailed)
	}
	return c.session, nil
}

// crawlSeed processes one category listing end to end.
func (c *Crawler) crawlSeed(ctx context.Context, seed string) error {
	c.state = StateFetchingCategory
	resp, err := c.fetchCategory(ctx, seed)
	if err != nil {
		return err
	}
	c.session.Stats.CategoriesFetched++
	if c.metrics != nil {
		c.metrics.CategoriesFetched.Add(1)
		c.metrics.BytesDownloaded.Add(int64(len(resp.Body)))
	}

	c.state = StateDiscoveringLinks
	subcategory := c.subcategoryLabel(resp, seed)
	links, err := DiscoverLinks(resp, c.cfg.Crawl.LinkPattern)
	if err != nil {
		return err
	}
	c.logger.Info("category page scanned",
		"seed", seed,
		"subcategory", subcategory,
		"links", len(links))

	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		c.crawlProduct(ctx, link, seed, subcategory)
	}
	return nil
}

// fetchCategory fetches a category listing, allowing one immediate
// retry. The retry passes through the same fetcher, so the politeness
// delay applies to it as well.
func (c *Crawler) fetchCategory(ctx context.Context, seed string) (*types.Response, error) {
	req, err := types.NewRequest(seed)
	if err != nil {
		return nil, err
	}
	req.Tag = types.TagCategory

	var lastErr error
	for attempt := 0; attempt <= categoryRetries; attempt++ {
		resp, err := c.fetcher.Fetch(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt < categoryRetries {
			c.logger.Warn("category page fetch failed, retrying",
				"seed", seed, "error", err)
		}
	}
	return nil, lastErr
}

// crawlProduct visits one product page. Failures are logged and
// counted; they never abort the seed or the run.
func (c *Crawler) crawlProduct(ctx context.Context, link, seed, subcategory string) {
	c.state = StateFetchingProduct
	req, err := types.NewRequest(link)
	if err != nil {
		c.session.Stats.PagesFailed++
		if c.metrics != nil {
			c.metrics.PagesFailed.Add(1)
		}
		c.logger.Warn("skipping malformed product link", "url", link, "error", err)
		return
	}
	req.Tag = types.TagProduct
	req.ParentURL = seed

	resp, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		c.session.Stats.PagesFailed++
		if c.metrics != nil {
			c.metrics.PagesFailed.Add(1)
		}
		c.logger.Warn("product page fetch failed", "url", link, "error", err)
		return
	}
	c.session.Stats.PagesFetched++
	if c.metrics != nil {
		c.metrics.PagesFetched.Add(1)
		c.metrics.BytesDownloaded.Add(int64(len(resp.Body)))
	}

	c.state = StateResolving
	res, err := c.resolver.Resolve(resp)
	if err != nil {
		c.session.Stats.ProductsRejected++
		if c.metrics != nil {
			c.metrics.ProductsRejected.Add(1)
		}
		c.logger.Warn("product page unparsable", "url", link, "error", err)
		return
	}

	c.state = StateRecording
	p, err := c.builder.Build(res, subcategory)
	if err != nil {
		c.session.Stats.ProductsRejected++
		if c.metrics != nil {
			c.metrics.ProductsRejected.Add(1)
		}
		c.logger.Warn("product rejected", "url", link, "error", err)
		return
	}

	if err := c.session.Admit(p); err != nil {
		if c.metrics != nil {
			c.metrics.DuplicatesSkipped.Add(1)
		}
		c.logger.Debug("duplicate product skipped",
			"identity", p.Identity, "url", p.URL)
		return
	}
	if c.metrics != nil {
		c.metrics.ProductsRecorded.Add(1)
	}
	c.logger.Info("product recorded",
		"identity", p.Identity,
		"title", p.Title,
		"subcategory", p.Subcategory,
		"url", p.URL)

	if c.sink != nil {
		if err := c.sink.Store([]*types.Product{p}); err != nil {
			c.session.Stats.SinkErrors++
			if c.metrics != nil {
				c.metrics.SinkErrors.Add(1)
			}
			c.logger.Error("sink store failed", "identity", p.Identity, "error", err)
		}
	}
}

// subcategoryLabel derives a human label for a listing: the page's h1,
// then .page-title, then the last path segment of the seed URL.
func (c *Crawler) subcategoryLabel(resp *types.Response, seed string) string {
	if doc, err := resp.Document(); err == nil {
		for _, sel := range []string{"h1", ".page-title"} {
			text := strings.Join(strings.Fields(doc.Find(sel).First().Text()), " ")
			if text != "" {
				return text
			}
		}
	}
	trimmed := strings.TrimRight(seed, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 && i+1 < len(trimmed) {
		return trimmed[i+1:]
	}
	return trimmed
}
