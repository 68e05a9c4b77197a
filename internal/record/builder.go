package record

import (
	"html"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/shelfhound/shelfhound/internal/resolve"
	"github.com/shelfhound/shelfhound/internal/types"
)

// maxSubcategoryLen caps subcategory labels so they stay usable as
// directory names.
const maxSubcategoryLen = 120

var tagRe = regexp.MustCompile(`<[^>]*>`)

// Builder turns resolver output into validated product records. It is
// deterministic: the same resolver result always yields the same record,
// including its identity.
type Builder struct {
	category string
	logger   *slog.Logger
}

// NewBuilder creates a Builder that stamps every record with the given
// category label.
func NewBuilder(category string, logger *slog.Logger) *Builder {
	if category == "" {
		category = types.UnknownValue
	}
	return &Builder{
		category: category,
		logger:   logger.With("component", "builder"),
	}
}

// Build assembles a product record from a resolved page. Title and URL
// are required and produce a ValidationError when absent; every other
// missing field is filled with the unknown sentinel so records always
// carry the full column set.
func (b *Builder) Build(res *resolve.Result, subcategory string) (*types.Product, error) {
	title := NormalizeText(res.Value("title"))
	if title == "" {
		return nil, &types.ValidationError{URL: res.URL, Field: "title", Err: types.ErrMissingTitle}
	}

	rawURL := strings.TrimSpace(res.URL)
	if rawURL == "" {
		return nil, &types.ValidationError{Field: "url", Err: types.ErrMissingURL}
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, &types.ValidationError{URL: rawURL, Field: "url", Err: types.ErrInvalidURL}
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return nil, &types.ValidationError{URL: rawURL, Field: "url", Err: types.ErrInvalidURL}
	}

	p := &types.Product{
		Title:       title,
		Price:       fieldOrUnknown(res, "price"),
		UnitPrice:   fieldOrUnknown(res, "unit_price"),
		Description: fieldOrUnknown(res, "description"),
		Brand:       fieldOrUnknown(res, "brand"),
		SKU:         fieldOrUnknown(res, "sku"),
		Category:    b.category,
		Subcategory: SanitizeSubcategory(subcategory),
		URL:         CanonicalizeURL(rawURL),
		ImageURLs:   res.ImageURLs,
	}
	p.Identity = Identity(p.Title, p.URL)

	b.logger.Debug("record built",
		"identity", p.Identity,
		"title", p.Title,
		"subcategory", p.Subcategory,
		"images", len(p.ImageURLs))

	return p, nil
}

// fieldOrUnknown normalizes the named field, substituting the unknown
// sentinel when the resolver produced nothing usable.
func fieldOrUnknown(res *resolve.Result, name string) string {
	if v := NormalizeText(res.Value(name)); v != "" {
		return v
	}
	return types.UnknownValue
}

// NormalizeText strips residual markup from an extracted value, decodes
// HTML entities, and collapses runs of whitespace into single spaces.
func NormalizeText(s string) string {
	cleaned := tagRe.ReplaceAllString(s, "")
	cleaned = html.UnescapeString(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}

// SanitizeSubcategory makes a subcategory label safe to use as a single
// directory name: letters, digits, spaces, hyphens and underscores pass
// through, everything else becomes an underscore. Labels are capped at
// 120 characters and an empty label falls back to the default bucket.
func SanitizeSubcategory(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.DefaultSubcategory
	}

	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		switch r {
		case ' ', '_', '-':
			return r
		}
		return '_'
	}, s)

	if runes := []rune(safe); len(runes) > maxSubcategoryLen {
		safe = string(runes[:maxSubcategoryLen])
	}

	safe = strings.TrimSpace(safe)
	if safe == "" {
		return types.DefaultSubcategory
	}
	return safe
}
