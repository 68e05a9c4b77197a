package resolve

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// imageExtensions are the file types gallery anchors may point at.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// collectMarkupImages gathers image candidates from page markup in
// document order: <img> sources first (src, then the common lazy-load
// attributes), then gallery anchors that point straight at image files.
func collectMarkupImages(doc *goquery.Document) []string {
	var out []string

	doc.Find("img").Each(func(i int, sel *goquery.Selection) {
		if src := firstAttr(sel, "src", "data-src", "data-lazy-src"); src != "" {
			out = append(out, src)
		}
	})

	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if isImageLink(href) {
			out = append(out, href)
		}
	})

	return out
}

func firstAttr(sel *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := sel.Attr(name); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func isImageLink(href string) bool {
	href = strings.ToLower(href)
	for _, ext := range imageExtensions {
		if strings.Contains(href, ext) {
			return true
		}
	}
	return false
}

// normalizeImageURLs makes every candidate absolute and comparable:
// protocol-relative URLs are pinned to https, relative paths resolve
// against the page URL, query and fragment are dropped, and duplicates
// are removed while keeping first-seen order.
func normalizeImageURLs(raw []string, base *url.URL) []string {
	seen := make(map[string]bool, len(raw))
	var out []string

	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if strings.HasPrefix(r, "//") {
			r = "https:" + r
		}
		if i := strings.IndexAny(r, "?#"); i >= 0 {
			r = r[:i]
		}
		if r == "" {
			continue
		}

		u, err := url.Parse(r)
		if err != nil {
			continue
		}
		if base != nil {
			u = base.ResolveReference(u)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}

		abs := u.String()
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	}

	return out
}
