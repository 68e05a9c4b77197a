package resolve

import (
	"log/slog"
	"strings"

	"github.com/shelfhound/shelfhound/internal/config"
)

// CSSStrategy answers css queries via goquery selectors.
type CSSStrategy struct {
	logger *slog.Logger
}

// NewCSSStrategy creates a CSS selector strategy.
func NewCSSStrategy(logger *slog.Logger) *CSSStrategy {
	return &CSSStrategy{
		logger: logger.With("component", "css_strategy"),
	}
}

// Extract returns the first match for the query's selector. With no
// attribute set the element text is returned; "html" returns the inner
// HTML; any other attribute name reads that attribute.
func (s *CSSStrategy) Extract(page *Page, q config.Query) (string, error) {
	sel := page.Doc.Find(q.Selector).First()
	if sel.Length() == 0 {
		return "", nil
	}

	switch q.Attribute {
	case "", "text":
		return strings.TrimSpace(sel.Text()), nil
	case "html", "innerHTML":
		html, err := sel.Html()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(html), nil
	default:
		val, _ := sel.Attr(q.Attribute)
		return strings.TrimSpace(val), nil
	}
}

// Name implements Strategy.
func (s *CSSStrategy) Name() string { return "css" }
