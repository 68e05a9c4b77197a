package images

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/shelfhound/shelfhound/internal/config"
	"github.com/shelfhound/shelfhound/internal/fetcher"
	"github.com/shelfhound/shelfhound/internal/observability"
	"github.com/shelfhound/shelfhound/internal/types"
)

// Group is one subcategory's worth of products, in recorded order.
type Group struct {
	Name     string
	Products []*types.Product
}

// GroupBySubcategory partitions products by subcategory. Subcategories
// keep the order in which they first appeared; products keep their
// order within each group. Positions for filenames come from that
// product order, 1-based.
func GroupBySubcategory(products []*types.Product) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, p := range products {
		i, ok := index[p.Subcategory]
		if !ok {
			i = len(groups)
			index[p.Subcategory] = i
			groups = append(groups, Group{Name: p.Subcategory})
		}
		groups[i].Products = append(groups[i].Products, p)
	}
	return groups
}

// Result summarizes one coordinator run. BySubcategory counts images on
// disk for this run's products, whether downloaded now or found from an
// earlier run.
type Result struct {
	Downloaded    int
	Skipped       int
	Failed        int
	BySubcategory map[string]int
}

// Coordinator downloads product images after a crawl completes. It
// fetches through the shared fetcher, so politeness delays and request
// headers match the page crawl. Individual image failures are logged
// and do not stop the run.
type Coordinator struct {
	cfg     *config.ImagesConfig
	fetcher fetcher.Fetcher
	store   Store
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a Coordinator writing through store.
func New(cfg *config.ImagesConfig, f fetcher.Fetcher, store Store, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		fetcher: f,
		store:   store,
		logger:  logger.With("component", "images"),
	}
}

// SetMetrics attaches operational counters. Optional.
func (c *Coordinator) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

// Run fetches images for every product, grouped by subcategory in
// first-seen order. Rerunning over the same products is idempotent:
// files already on disk are never fetched again.
func (c *Coordinator) Run(ctx context.Context, products []*types.Product) *Result {
	res := &Result{BySubcategory: make(map[string]int)}

	groups := GroupBySubcategory(products)
	for _, g := range groups {
		for i, p := range g.Products {
			if ctx.Err() != nil {
				c.logger.Warn("image fetch interrupted")
				return res
			}
			c.fetchProduct(ctx, p, g.Name, i+1, res)
		}
	}

	c.logger.Info("image fetch finished",
		"downloaded", res.Downloaded,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"subcategories", len(groups))
	return res
}

// fetchProduct downloads up to MaxPerProduct images for one product.
func (c *Coordinator) fetchProduct(ctx context.Context, p *types.Product, subcategory string, position int, res *Result) {
	urls := p.ImageURLs
	if len(urls) == 0 {
		return
	}
	max := c.cfg.MaxPerProduct
	if max <= 0 {
		max = 1
	}
	if len(urls) > max {
		urls = urls[:max]
	}

	for n, rawURL := range urls {
		relPath := filepath.Join(subcategory, Filename(position, n, rawURL))

		if c.store.Exists(relPath) {
			res.Skipped++
			res.BySubcategory[subcategory]++
			if c.metrics != nil {
				c.metrics.ImagesSkipped.Add(1)
			}
			c.logger.Debug("image already on disk", "path", relPath)
			continue
		}

		data, err := c.fetchImage(ctx, rawURL)
		if err != nil {
			res.Failed++
			if c.metrics != nil {
				c.metrics.ImagesFailed.Add(1)
			}
			c.logger.Warn("image download failed",
				"url", rawURL, "identity", p.Identity, "error", err)
			continue
		}

		full, err := c.store.Save(relPath, data)
		if err != nil {
			res.Failed++
			if c.metrics != nil {
				c.metrics.ImagesFailed.Add(1)
			}
			c.logger.Warn("image save failed", "path", relPath, "error", err)
			continue
		}

		res.Downloaded++
		res.BySubcategory[subcategory]++
		if c.metrics != nil {
			c.metrics.ImagesDownloaded.Add(1)
			c.metrics.BytesDownloaded.Add(int64(len(data)))
		}
		c.logger.Debug("image saved", "path", full, "bytes", len(data))
	}
}

// fetchImage retrieves one image through the shared fetcher.
func (c *Coordinator) fetchImage(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, err
	}
	req.Tag = types.TagImage
	req.Timeout = c.cfg.Timeout

	resp, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, &types.ImageError{URL: rawURL, Err: err}
	}
	if len(resp.Body) == 0 {
		return nil, &types.ImageError{URL: rawURL, Err: types.ErrEmptyResponse}
	}
	return resp.Body, nil
}

// Filename derives the stored name for an image from the product's
// 1-based position within its subcategory. The first image is
// product_<position>.<ext>; later ones add their ordinal.
func Filename(position, imageIndex int, rawURL string) string {
	ext := extensionOf(rawURL)
	if imageIndex == 0 {
		return fmt.Sprintf("product_%d%s", position, ext)
	}
	return fmt.Sprintf("product_%d_%d%s", position, imageIndex+1, ext)
}

// extensionOf pulls a usable extension from the image URL path. Source
// filenames are unreliable, so anything unrecognized becomes .jpg.
func extensionOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return ext
	}
	return ".jpg"
}
