package types

import (
	"strings"
)

// Sentinel values for fields that could not be resolved. They are written
// out verbatim so downstream consumers can tell "missing" from "empty".
const (
	UnknownValue       = "unknown"
	DefaultSubcategory = "Uncategorized"
)

// ImageListSeparator joins image URLs into the single image_urls column.
const ImageListSeparator = "|"

// Product is a single normalized catalog record. Identity is derived from
// the normalized title and canonical URL and stays stable across runs.
type Product struct {
	Identity    string
	Title       string
	Price       string
	UnitPrice   string
	Description string
	Brand       string
	SKU         string
	Category    string
	Subcategory string
	URL         string
	ImageURLs   []string
}

// Columns is the fixed export schema. Every sink emits exactly these
// columns in exactly this order.
func Columns() []string {
	return []string{
		"title",
		"price",
		"unit_price",
		"description",
		"brand",
		"sku",
		"category",
		"subcategory",
		"url",
		"image_urls",
	}
}

// Row returns the product's values in Columns order.
func (p *Product) Row() []string {
	return []string{
		p.Title,
		p.Price,
		p.UnitPrice,
		p.Description,
		p.Brand,
		p.SKU,
		p.Category,
		p.Subcategory,
		p.URL,
		strings.Join(p.ImageURLs, ImageListSeparator),
	}
}

// FirstImage returns the first image URL, or "" when the product has none.
func (p *Product) FirstImage() string {
	if len(p.ImageURLs) == 0 {
		return ""
	}
	return p.ImageURLs[0]
}

// HasImages reports whether any image URL was resolved for the product.
func (p *Product) HasImages() bool {
	return len(p.ImageURLs) > 0
}
