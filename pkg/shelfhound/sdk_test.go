package shelfhound

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestScraperEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/products/sides", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Holiday Sides</h1>
<a href="/products/turkey">Turkey</a>
<a href="/products/stuffing">Stuffing</a>
</body></html>`)
	})
	product := func(name, price, img string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `<html><head><script type="application/ld+json">
{"@type": "Product", "name": %q, "offers": {"price": %q}, "image": %q}
</script></head><body><h1>%s</h1></body></html>`, name, price, img, name)
		}
	}
	mux.HandleFunc("/products/turkey", product("Turkey Roast", "19.99", "/img/turkey.jpg"))
	mux.HandleFunc("/products/stuffing", product("Stuffing Mix", "3.49", "/img/stuffing.jpg"))
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "bytes-of-%s", filepath.Base(r.URL.Path))
	})

	out := t.TempDir()
	scraper := New(
		WithSeeds(srv.URL+"/products/sides"),
		WithCategory("Holiday"),
		WithDelay(0),
		WithOutputDir(out),
		WithSinks("csv"),
		WithMaxImages(1),
	)
	scraper.SetLogger(testLogger)

	rep, err := scraper.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(rep.Products) != 2 {
		t.Fatalf("products = %d, want 2", len(rep.Products))
	}
	first := rep.Products[0]
	if first.Title != "Turkey Roast" || first.Price != "19.99" {
		t.Errorf("first product = %+v", first)
	}
	if first.Category != "Holiday" || first.Subcategory != "Holiday Sides" {
		t.Errorf("labels = %q / %q", first.Category, first.Subcategory)
	}
	if first.Identity == "" || first.Identity == rep.Products[1].Identity {
		t.Errorf("identities not unique: %q vs %q", first.Identity, rep.Products[1].Identity)
	}

	if _, err := os.Stat(filepath.Join(out, "products.csv")); err != nil {
		t.Errorf("csv not written: %v", err)
	}
	for _, name := range []string{"product_1.jpg", "product_2.jpg"} {
		if _, err := os.Stat(filepath.Join(out, "images", "Holiday Sides", name)); err != nil {
			t.Errorf("image %s not written: %v", name, err)
		}
	}
	if rep.ImagesDownloaded != 2 {
		t.Errorf("images downloaded = %d, want 2", rep.ImagesDownloaded)
	}
	if !strings.Contains(rep.Summary, "Total") {
		t.Errorf("summary missing totals:\n%s", rep.Summary)
	}
}

func TestScraperRejectsInvalidConfig(t *testing.T) {
	scraper := New(WithSeeds())
	scraper.SetLogger(testLogger)

	if _, err := scraper.Run(context.Background()); err == nil {
		t.Fatal("expected error for empty seed list")
	}
}

func TestOptionsApply(t *testing.T) {
	s := New(
		WithCategory("Easter"),
		WithLinkPattern("/items/"),
		WithAppendMode(),
		WithoutImages(),
		WithUserAgent("shelfhound-test/1.0"),
	)

	if s.cfg.Crawl.Category != "Easter" {
		t.Errorf("category = %q", s.cfg.Crawl.Category)
	}
	if s.cfg.Crawl.LinkPattern != "/items/" {
		t.Errorf("link pattern = %q", s.cfg.Crawl.LinkPattern)
	}
	if s.cfg.Sinks.Mode != "append" {
		t.Errorf("mode = %q", s.cfg.Sinks.Mode)
	}
	if s.cfg.Images.Enabled {
		t.Error("images still enabled")
	}
	if s.cfg.Fetcher.UserAgent != "shelfhound-test/1.0" {
		t.Errorf("user agent = %q", s.cfg.Fetcher.UserAgent)
	}
}
