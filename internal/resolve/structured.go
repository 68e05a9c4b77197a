package resolve

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ProductMetadata is the schema.org Product block found in a page's
// JSON-LD, flattened to the fields the resolver understands.
type ProductMetadata struct {
	Name        string
	Description string
	Brand       string
	SKU         string
	Price       string
	URL         string
	Images      []string
}

// Value returns the metadata value for a rule's metadata_key.
func (m *ProductMetadata) Value(key string) string {
	switch key {
	case "name", "title":
		return m.Name
	case "description":
		return m.Description
	case "brand":
		return m.Brand
	case "sku":
		return m.SKU
	case "price":
		return m.Price
	case "url":
		return m.URL
	}
	return ""
}

// MetadataExtractor locates schema.org Product metadata in a page.
type MetadataExtractor struct {
	logger *slog.Logger
}

// NewMetadataExtractor creates a metadata extractor.
func NewMetadataExtractor(logger *slog.Logger) *MetadataExtractor {
	return &MetadataExtractor{
		logger: logger.With("component", "metadata"),
	}
}

// Extract scans every <script type="application/ld+json"> block and
// returns the first schema.org Product found. Malformed blocks are
// logged and skipped; a page with no usable block returns nil, which
// is not an error: the resolver simply falls back to markup.
func (e *MetadataExtractor) Extract(doc *goquery.Document, pageURL string) *ProductMetadata {
	var meta *ProductMetadata

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return true
		}

		blocks, err := decodeBlocks(raw)
		if err != nil {
			e.logger.Warn("malformed JSON-LD block, falling back to markup",
				"url", pageURL,
				"block", i,
				"error", err,
			)
			return true
		}

		for _, block := range blocks {
			if !isProductBlock(block) {
				continue
			}
			meta = flattenProduct(block)
			return false
		}
		return true
	})

	return meta
}

// decodeBlocks parses a JSON-LD payload into candidate objects. A
// payload may be a single object, an array of objects, or an object
// carrying an @graph array.
func decodeBlocks(raw string) ([]map[string]any, error) {
	data := []byte(raw)

	var obj map[string]any
	objErr := json.Unmarshal(data, &obj)
	if objErr == nil {
		if graph, ok := obj["@graph"].([]any); ok {
			return collectObjects(graph), nil
		}
		return []map[string]any{obj}, nil
	}

	var arr []any
	if err := json.Unmarshal(data, &arr); err == nil {
		return collectObjects(arr), nil
	}

	return nil, objErr
}

func collectObjects(list []any) []map[string]any {
	var out []map[string]any
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// isProductBlock reports whether @type names a schema.org Product.
func isProductBlock(m map[string]any) bool {
	switch t := m["@type"].(type) {
	case string:
		return typeIsProduct(t)
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && typeIsProduct(s) {
				return true
			}
		}
	}
	return false
}

func typeIsProduct(t string) bool {
	return t == "Product" || strings.HasSuffix(t, "/Product")
}

// flattenProduct pulls the fields the resolver consumes out of a
// Product block.
func flattenProduct(m map[string]any) *ProductMetadata {
	meta := &ProductMetadata{
		Name:        stringValue(m["name"]),
		Description: stringValue(m["description"]),
		SKU:         stringValue(m["sku"]),
		URL:         stringValue(m["url"]),
	}

	switch brand := m["brand"].(type) {
	case string:
		meta.Brand = strings.TrimSpace(brand)
	case map[string]any:
		meta.Brand = stringValue(brand["name"])
	}

	if offer := firstOffer(m["offers"]); offer != nil {
		meta.Price = stringValue(offer["price"])
		if meta.URL == "" {
			meta.URL = stringValue(offer["url"])
		}
	}

	imgs := m["image"]
	if imgs == nil {
		imgs = m["images"]
	}
	meta.Images = imageList(imgs)

	return meta
}

// firstOffer returns the first offer object, whether offers is a
// single object or a list.
func firstOffer(v any) map[string]any {
	switch offers := v.(type) {
	case map[string]any:
		return offers
	case []any:
		for _, o := range offers {
			if m, ok := o.(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

// imageList flattens the image field: a string, a list of strings or
// ImageObject maps, or a single ImageObject.
func imageList(v any) []string {
	switch imgs := v.(type) {
	case string:
		if imgs != "" {
			return []string{imgs}
		}
	case []any:
		var out []string
		for _, item := range imgs {
			switch img := item.(type) {
			case string:
				if img != "" {
					out = append(out, img)
				}
			case map[string]any:
				if u := stringValue(img["url"]); u != "" {
					out = append(out, u)
				}
			}
		}
		return out
	case map[string]any:
		if u := stringValue(imgs["url"]); u != "" {
			return []string{u}
		}
	}
	return nil
}

// stringValue renders a JSON scalar as a string. Numbers keep their
// shortest decimal form so a price of 19.99 stays "19.99".
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	return ""
}
