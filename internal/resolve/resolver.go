package resolve

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/shelfhound/shelfhound/internal/config"
	"github.com/shelfhound/shelfhound/internal/types"
)

// FieldValue is one resolved field with its provenance.
type FieldValue struct {
	Value  string
	Source Provenance
}

// Result is the raw extraction for one product page. Values are not
// yet normalized; the record builder takes care of that.
type Result struct {
	// URL is the best product URL the page offers.
	URL string

	// URLSource tells which tier produced URL.
	URLSource Provenance

	// Fields maps rule names to resolved values. Unresolved fields
	// have no entry at all.
	Fields map[string]FieldValue

	// ImageURLs are absolute, query-stripped, unique, in page order.
	ImageURLs []string

	// ImageSource tells which tier produced ImageURLs.
	ImageSource Provenance
}

// Value returns the resolved value for name, or "".
func (r *Result) Value(name string) string {
	return r.Fields[name].Value
}

// Source returns the provenance for name, or "" when unresolved.
func (r *Result) Source(name string) Provenance {
	return r.Fields[name].Source
}

// Resolver extracts product fields from fetched pages. Each field is
// resolved independently: embedded product metadata first when the
// rule names a metadata key, then the rule's markup queries in order.
// One field may come from metadata while the next comes from markup
// on the same page.
type Resolver struct {
	rules      []config.FieldRule
	metadata   *MetadataExtractor
	strategies map[string]Strategy
	logger     *slog.Logger
}

// New creates a Resolver from the configured field rules.
func New(cfg *config.ResolverConfig, logger *slog.Logger) *Resolver {
	return &Resolver{
		rules:    cfg.Fields,
		metadata: NewMetadataExtractor(logger),
		strategies: map[string]Strategy{
			"css":   NewCSSStrategy(logger),
			"xpath": NewXPathStrategy(logger),
			"regex": NewRegexStrategy(logger),
		},
		logger: logger.With("component", "resolver"),
	}
}

// Resolve extracts all configured fields from one product page. The
// only hard failure is a page that cannot be parsed at all; anything
// below that degrades per field and never panics the run.
func (r *Resolver) Resolve(resp *types.Response) (*Result, error) {
	pageURL := resp.FinalURL
	if pageURL == "" && resp.Request != nil {
		pageURL = resp.Request.URLString()
	}

	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: pageURL, Err: err}
	}

	page := &Page{URL: pageURL, Doc: doc, Body: string(resp.Body)}
	meta := r.metadata.Extract(doc, pageURL)

	result := &Result{Fields: make(map[string]FieldValue, len(r.rules))}

	for _, rule := range r.rules {
		value, source := r.resolveField(page, meta, rule)
		if value == "" {
			r.logger.Debug("field unresolved", "url", pageURL, "field", rule.Name)
			continue
		}
		result.Fields[rule.Name] = FieldValue{Value: value, Source: source}
	}

	result.URL, result.URLSource = r.resolveURL(page, meta)
	result.ImageURLs, result.ImageSource = r.resolveImages(page, meta)

	return result, nil
}

// resolveField applies the two tiers for a single rule.
func (r *Resolver) resolveField(page *Page, meta *ProductMetadata, rule config.FieldRule) (string, Provenance) {
	if meta != nil && rule.MetadataKey != "" {
		if v := meta.Value(rule.MetadataKey); v != "" {
			return v, ProvenanceStructured
		}
	}

	for _, q := range rule.Queries {
		strategy, ok := r.strategies[q.Type]
		if !ok {
			r.logger.Warn("unknown query type", "field", rule.Name, "type", q.Type)
			continue
		}
		v, err := strategy.Extract(page, q)
		if err != nil {
			r.logger.Warn("markup query failed",
				"url", page.URL,
				"field", rule.Name,
				"type", q.Type,
				"error", err,
			)
			continue
		}
		if v != "" {
			return v, ProvenanceMarkup
		}
	}

	return "", ""
}

// resolveURL picks the product URL: metadata url, then the page's
// canonical link, then the address the page was fetched from. The
// last two count as the fallback tier.
func (r *Resolver) resolveURL(page *Page, meta *ProductMetadata) (string, Provenance) {
	if meta != nil && meta.URL != "" {
		return absoluteURL(meta.URL, page.URL), ProvenanceStructured
	}
	if canonical, ok := page.Doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		if canonical = strings.TrimSpace(canonical); canonical != "" {
			return absoluteURL(canonical, page.URL), ProvenanceMarkup
		}
	}
	return page.URL, ProvenanceMarkup
}

// resolveImages prefers metadata images and falls back to markup
// collection. Either way the list comes back normalized.
func (r *Resolver) resolveImages(page *Page, meta *ProductMetadata) ([]string, Provenance) {
	base, err := url.Parse(page.URL)
	if err != nil {
		base = nil
	}

	if meta != nil && len(meta.Images) > 0 {
		if imgs := normalizeImageURLs(meta.Images, base); len(imgs) > 0 {
			return imgs, ProvenanceStructured
		}
	}

	imgs := normalizeImageURLs(collectMarkupImages(page.Doc), base)
	if len(imgs) == 0 {
		return nil, ""
	}
	return imgs, ProvenanceMarkup
}

// absoluteURL resolves raw against base when raw is relative.
func absoluteURL(raw, base string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	if u.IsAbs() {
		return u.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return raw
	}
	return b.ResolveReference(u).String()
}
