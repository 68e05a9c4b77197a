package resolve

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/shelfhound/shelfhound/internal/config"
)

// XPathStrategy answers xpath queries. It walks the same node tree
// goquery already parsed, so the page is never re-parsed.
type XPathStrategy struct {
	logger *slog.Logger
}

// NewXPathStrategy creates an XPath strategy.
func NewXPathStrategy(logger *slog.Logger) *XPathStrategy {
	return &XPathStrategy{
		logger: logger.With("component", "xpath_strategy"),
	}
}

// Extract returns the first node matching the query's expression.
func (s *XPathStrategy) Extract(page *Page, q config.Query) (string, error) {
	root := documentNode(page)
	if root == nil {
		return "", fmt.Errorf("no parsed document for %s", page.URL)
	}

	node, err := htmlquery.Query(root, q.Selector)
	if err != nil {
		return "", fmt.Errorf("invalid xpath %q: %w", q.Selector, err)
	}
	if node == nil {
		return "", nil
	}

	switch q.Attribute {
	case "", "text":
		return strings.TrimSpace(htmlquery.InnerText(node)), nil
	case "html", "innerHTML":
		return strings.TrimSpace(htmlquery.OutputHTML(node, false)), nil
	default:
		return strings.TrimSpace(htmlquery.SelectAttr(node, q.Attribute)), nil
	}
}

// Name implements Strategy.
func (s *XPathStrategy) Name() string { return "xpath" }

// documentNode digs the root *html.Node out of the goquery document.
func documentNode(page *Page) *html.Node {
	if page.Doc == nil || len(page.Doc.Nodes) == 0 {
		return nil
	}
	return page.Doc.Nodes[0]
}
