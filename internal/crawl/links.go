package crawl

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shelfhound/shelfhound/internal/record"
	"github.com/shelfhound/shelfhound/internal/types"
)

// DiscoverLinks scans a category listing for product links. Anchors
// whose href contains pattern are resolved against the page URL and
// stripped of query and fragment. Order follows the document; a link
// repeated within the page keeps its first position only. The listing's
// own URL is never returned.
func DiscoverLinks(resp *types.Response, pattern string) ([]string, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: resp.Request.URLString(), Err: err}
	}

	base := resp.Request.URL
	if resp.FinalURL != "" {
		if u, err := url.Parse(resp.FinalURL); err == nil {
			base = u
		}
	}
	self := record.CanonicalizeURL(base.String())

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || !strings.Contains(href, pattern) {
			return
		}

		abs, err := base.Parse(href)
		if err != nil {
			return
		}
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.RawQuery = ""
		abs.Fragment = ""

		link := abs.String()
		if record.CanonicalizeURL(link) == self {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	return links, nil
}
