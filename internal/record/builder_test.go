package record

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/shelfhound/shelfhound/internal/resolve"
	"github.com/shelfhound/shelfhound/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelError,
}))

func fullResult() *resolve.Result {
	return &resolve.Result{
		URL:       "https://www.aldi.us/products/thanksgiving/pumpkin-pie/p/123",
		URLSource: resolve.ProvenanceStructured,
		Fields: map[string]resolve.FieldValue{
			"title":       {Value: "Pumpkin Pie", Source: resolve.ProvenanceStructured},
			"price":       {Value: "$4.99", Source: resolve.ProvenanceStructured},
			"unit_price":  {Value: "$0.21/oz", Source: resolve.ProvenanceMarkup},
			"description": {Value: "A classic holiday pie.", Source: resolve.ProvenanceStructured},
			"brand":       {Value: "Bake Shop", Source: resolve.ProvenanceStructured},
			"sku":         {Value: "PMP-123", Source: resolve.ProvenanceMarkup},
		},
		ImageURLs: []string{
			"https://cdn.aldi.us/img/pie1.jpg",
			"https://cdn.aldi.us/img/pie2.jpg",
		},
	}
}

// --- Build Tests ---

func TestBuildFullRecord(t *testing.T) {
	b := NewBuilder("Thanksgiving", testLogger)

	p, err := b.Build(fullResult(), "Thanksgiving Desserts")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if p.Title != "Pumpkin Pie" {
		t.Errorf("Title = %q, want %q", p.Title, "Pumpkin Pie")
	}
	if p.Price != "$4.99" {
		t.Errorf("Price = %q, want %q", p.Price, "$4.99")
	}
	if p.UnitPrice != "$0.21/oz" {
		t.Errorf("UnitPrice = %q, want %q", p.UnitPrice, "$0.21/oz")
	}
	if p.Description != "A classic holiday pie." {
		t.Errorf("Description = %q", p.Description)
	}
	if p.Brand != "Bake Shop" {
		t.Errorf("Brand = %q, want %q", p.Brand, "Bake Shop")
	}
	if p.SKU != "PMP-123" {
		t.Errorf("SKU = %q, want %q", p.SKU, "PMP-123")
	}
	if p.Category != "Thanksgiving" {
		t.Errorf("Category = %q, want %q", p.Category, "Thanksgiving")
	}
	if p.Subcategory != "Thanksgiving Desserts" {
		t.Errorf("Subcategory = %q, want %q", p.Subcategory, "Thanksgiving Desserts")
	}
	if p.URL != "https://www.aldi.us/products/thanksgiving/pumpkin-pie/p/123" {
		t.Errorf("URL = %q", p.URL)
	}
	if len(p.ImageURLs) != 2 {
		t.Errorf("len(ImageURLs) = %d, want 2", len(p.ImageURLs))
	}

	if len(p.Identity) != 32 {
		t.Errorf("len(Identity) = %d, want 32", len(p.Identity))
	}
	if p.Identity != Identity(p.Title, p.URL) {
		t.Errorf("Identity not derived from title and URL")
	}
}

func TestBuildFillsUnknowns(t *testing.T) {
	b := NewBuilder("Thanksgiving", testLogger)

	res := &resolve.Result{
		URL: "https://www.aldi.us/products/p/9",
		Fields: map[string]resolve.FieldValue{
			"title": {Value: "Dinner Rolls", Source: resolve.ProvenanceMarkup},
		},
	}

	p, err := b.Build(res, "")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	for name, got := range map[string]string{
		"price":       p.Price,
		"unit_price":  p.UnitPrice,
		"description": p.Description,
		"brand":       p.Brand,
		"sku":         p.SKU,
	} {
		if got != types.UnknownValue {
			t.Errorf("%s = %q, want %q", name, got, types.UnknownValue)
		}
	}
	if p.Subcategory != types.DefaultSubcategory {
		t.Errorf("Subcategory = %q, want %q", p.Subcategory, types.DefaultSubcategory)
	}
	if len(p.ImageURLs) != 0 {
		t.Errorf("len(ImageURLs) = %d, want 0", len(p.ImageURLs))
	}
}

func TestBuildMissingTitle(t *testing.T) {
	b := NewBuilder("Thanksgiving", testLogger)

	res := fullResult()
	delete(res.Fields, "title")

	_, err := b.Build(res, "Sides")
	if err == nil {
		t.Fatal("Build() expected error for missing title")
	}
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *types.ValidationError", err)
	}
	if verr.Field != "title" {
		t.Errorf("Field = %q, want %q", verr.Field, "title")
	}
	if !errors.Is(err, types.ErrMissingTitle) {
		t.Error("errors.Is(err, ErrMissingTitle) = false")
	}
}

func TestBuildTitleOnlyMarkup(t *testing.T) {
	// A title that normalizes to nothing counts as missing.
	b := NewBuilder("Thanksgiving", testLogger)

	res := fullResult()
	res.Fields["title"] = resolve.FieldValue{
		Value:  "<span>   </span>",
		Source: resolve.ProvenanceMarkup,
	}

	if _, err := b.Build(res, "Sides"); !errors.Is(err, types.ErrMissingTitle) {
		t.Errorf("Build() error = %v, want ErrMissingTitle", err)
	}
}

func TestBuildMissingURL(t *testing.T) {
	b := NewBuilder("Thanksgiving", testLogger)

	res := fullResult()
	res.URL = ""

	if _, err := b.Build(res, "Sides"); !errors.Is(err, types.ErrMissingURL) {
		t.Errorf("Build() error = %v, want ErrMissingURL", err)
	}
}

func TestBuildInvalidURL(t *testing.T) {
	b := NewBuilder("Thanksgiving", testLogger)

	for _, raw := range []string{
		"not a url at all",
		"/products/relative/p/1",
		"ftp://files.example.com/pie",
	} {
		res := fullResult()
		res.URL = raw
		if _, err := b.Build(res, "Sides"); !errors.Is(err, types.ErrInvalidURL) {
			t.Errorf("Build(%q) error = %v, want ErrInvalidURL", raw, err)
		}
	}
}

func TestBuildCanonicalizesURL(t *testing.T) {
	b := NewBuilder("Thanksgiving", testLogger)

	res := fullResult()
	res.URL = "HTTPS://WWW.Aldi.US:443/products/pie/?b=2&a=1#reviews"

	p, err := b.Build(res, "Desserts")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	want := "https://www.aldi.us/products/pie?a=1&b=2"
	if p.URL != want {
		t.Errorf("URL = %q, want %q", p.URL, want)
	}
}

func TestBuildNormalizesFields(t *testing.T) {
	b := NewBuilder("Thanksgiving", testLogger)

	res := fullResult()
	res.Fields["title"] = resolve.FieldValue{
		Value:  "  <b>Pumpkin</b> &amp;\n\tSpice   Pie ",
		Source: resolve.ProvenanceMarkup,
	}
	res.Fields["description"] = resolve.FieldValue{
		Value:  "Rich &quot;holiday&quot;   flavor",
		Source: resolve.ProvenanceMarkup,
	}

	p, err := b.Build(res, "Desserts")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if p.Title != "Pumpkin & Spice Pie" {
		t.Errorf("Title = %q, want %q", p.Title, "Pumpkin & Spice Pie")
	}
	if p.Description != `Rich "holiday" flavor` {
		t.Errorf("Description = %q", p.Description)
	}
}

func TestBuildDeterministic(t *testing.T) {
	b := NewBuilder("Thanksgiving", testLogger)

	first, err := b.Build(fullResult(), "Desserts")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	second, err := b.Build(fullResult(), "Desserts")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if first.Identity != second.Identity {
		t.Errorf("identities differ: %q vs %q", first.Identity, second.Identity)
	}
	if first.URL != second.URL || first.Title != second.Title {
		t.Error("repeated builds produced different records")
	}
}

// --- Identity Tests ---

func TestIdentityStableAcrossEquivalentURLs(t *testing.T) {
	base := Identity("Pumpkin Pie", CanonicalizeURL("https://www.aldi.us/products/pie?a=1&b=2"))

	equivalents := []string{
		"https://www.aldi.us/products/pie?b=2&a=1",
		"https://WWW.ALDI.US/products/pie?a=1&b=2",
		"https://www.aldi.us:443/products/pie?a=1&b=2",
		"https://www.aldi.us/products/pie/?a=1&b=2",
		"https://www.aldi.us/products/pie?a=1&b=2#reviews",
	}
	for _, raw := range equivalents {
		if got := Identity("Pumpkin Pie", CanonicalizeURL(raw)); got != base {
			t.Errorf("Identity for %q = %q, want %q", raw, got, base)
		}
	}

	if got := Identity("Apple Pie", CanonicalizeURL("https://www.aldi.us/products/pie?a=1&b=2")); got == base {
		t.Error("different titles produced the same identity")
	}
	if got := Identity("Pumpkin Pie", CanonicalizeURL("https://www.aldi.us/products/tart")); got == base {
		t.Error("different URLs produced the same identity")
	}
}

func TestIdentityNormalizesTitle(t *testing.T) {
	u := "https://www.aldi.us/products/pie"
	if Identity("Pumpkin  Pie", u) != Identity("pumpkin pie", u) {
		t.Error("title case and spacing should not change the identity")
	}
}

// --- CanonicalizeURL Tests ---

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase host", "https://WWW.Example.COM/Path", "https://www.example.com/Path"},
		{"strip fragment", "https://example.com/p#frag", "https://example.com/p"},
		{"default https port", "https://example.com:443/p", "https://example.com/p"},
		{"default http port", "http://example.com:80/p", "http://example.com/p"},
		{"keep custom port", "https://example.com:8443/p", "https://example.com:8443/p"},
		{"sort query", "https://example.com/p?z=1&a=2", "https://example.com/p?a=2&z=1"},
		{"trailing slash", "https://example.com/p/", "https://example.com/p"},
		{"root stays", "https://example.com/", "https://example.com/"},
		{"empty path", "https://example.com", "https://example.com/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalizeURL(tt.in); got != tt.want {
				t.Errorf("CanonicalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// --- Normalization Tests ---

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Pumpkin Pie", "Pumpkin Pie"},
		{"tags stripped", "<h1>Pumpkin <em>Pie</em></h1>", "Pumpkin Pie"},
		{"entities decoded", "Mac &amp; Cheese", "Mac & Cheese"},
		{"whitespace collapsed", "  Sweet \n\t Potato   Mash  ", "Sweet Potato Mash"},
		{"empty", "   ", ""},
		{"nbsp entity", "12&nbsp;oz", "12 oz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.in); got != tt.want {
				t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeSubcategory(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean", "Thanksgiving Desserts", "Thanksgiving Desserts"},
		{"slash replaced", "Fall/Sides & Dips", "Fall_Sides _ Dips"},
		{"empty", "", types.DefaultSubcategory},
		{"whitespace only", "   ", types.DefaultSubcategory},
		{"unicode letters kept", "Käsekuchen", "Käsekuchen"},
		{"truncated", strings.Repeat("a", 150), strings.Repeat("a", 120)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeSubcategory(tt.in); got != tt.want {
				t.Errorf("SanitizeSubcategory(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
