package resolve

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/shelfhound/shelfhound/internal/config"
)

// Provenance identifies which tier produced a field value.
type Provenance string

const (
	// ProvenanceStructured marks values taken from embedded product
	// metadata (JSON-LD).
	ProvenanceStructured Provenance = "structured"

	// ProvenanceMarkup marks values recovered from page markup.
	ProvenanceMarkup Provenance = "markup"
)

// Page bundles the views a strategy may need of one fetched page.
// The goquery document is parsed once by the resolver and shared;
// the xpath strategy reuses its underlying node tree.
type Page struct {
	// URL the page was fetched from.
	URL string

	// Doc is the parsed document.
	Doc *goquery.Document

	// Body is the raw page text, for regex queries.
	Body string
}

// Strategy runs a single markup query against a page and returns the
// first matching value, or "" when nothing matched. A broken selector
// or pattern returns an error and never panics; the resolver logs it
// and moves on to the next query.
type Strategy interface {
	Extract(page *Page, q config.Query) (string, error)

	// Name returns the query type this strategy serves.
	Name() string
}
