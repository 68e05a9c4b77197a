package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/shelfhound/shelfhound/internal/config"
	"github.com/shelfhound/shelfhound/internal/fetcher"
	"github.com/shelfhound/shelfhound/internal/record"
	"github.com/shelfhound/shelfhound/internal/resolve"
	"github.com/shelfhound/shelfhound/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelError,
}))

// captureSink records every Store call it receives.
type captureSink struct {
	batches  [][]*types.Product
	storeErr error
}

func (s *captureSink) Store(products []*types.Product) error {
	s.batches = append(s.batches, products)
	return s.storeErr
}

func (s *captureSink) all() []*types.Product {
	var out []*types.Product
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func newTestCrawler(t *testing.T, seeds []string, sink Sink) *Crawler {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Crawl.Seeds = seeds
	cfg.Crawl.Delay = 0
	cfg.Images.Delay = 0

	f, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatalf("NewHTTPFetcher() error = %v", err)
	}
	t.Cleanup(func() { f.Close() })

	r := resolve.New(&cfg.Resolver, testLogger)
	b := record.NewBuilder(cfg.Crawl.Category, testLogger)
	return New(cfg, f, r, b, sink, testLogger)
}

func productPage(title, price, pageURL string) string {
	return fmt.Sprintf(`<html><head>
<script type="application/ld+json">
{"@type": "Product", "name": %q, "offers": {"price": %q, "url": %q}}
</script>
</head><body><h1>%s</h1></body></html>`, title, price, pageURL, title)
}

// markupOnlyPage has malformed product metadata and no price element.
func markupOnlyPage(title string) string {
	return fmt.Sprintf(`<html><head>
<script type="application/ld+json">{"@type": "Product", "name": </script>
</head><body><h1>%s</h1></body></html>`, title)
}

// --- Crawler Tests ---

func TestCrawlerRecordsListing(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/products/sides/k/300", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
<h1>Thanksgiving
   Sides</h1>
<a href="/products/a">Turkey Roast</a>
<a href="/about">About us</a>
<a href="/products/b?ref=listing">Stuffing Mix</a>
<a href="/products/a">Turkey Roast again</a>
</body></html>`)
	})
	mux.HandleFunc("/products/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPage("Turkey Roast", "19.99", srv.URL+"/products/a"))
	})
	mux.HandleFunc("/products/b", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, markupOnlyPage("Stuffing Mix"))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	sink := &captureSink{}
	c := newTestCrawler(t, []string{srv.URL + "/products/sides/k/300"}, sink)

	session, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(session.Products) != 2 {
		t.Fatalf("len(Products) = %d, want 2", len(session.Products))
	}
	if session.Products[0].Title != "Turkey Roast" {
		t.Errorf("Products[0].Title = %q, want %q", session.Products[0].Title, "Turkey Roast")
	}
	if session.Products[1].Title != "Stuffing Mix" {
		t.Errorf("Products[1].Title = %q, want %q", session.Products[1].Title, "Stuffing Mix")
	}
	if session.Products[0].Price != "19.99" {
		t.Errorf("Products[0].Price = %q, want %q", session.Products[0].Price, "19.99")
	}
	if session.Products[1].Price != types.UnknownValue {
		t.Errorf("Products[1].Price = %q, want unknown sentinel", session.Products[1].Price)
	}
	if got := session.Products[0].Subcategory; got != "Thanksgiving Sides" {
		t.Errorf("Subcategory = %q, want %q", got, "Thanksgiving Sides")
	}

	st := session.Stats
	if st.CategoriesFetched != 1 || st.PagesFetched != 2 || st.ProductsRecorded != 2 {
		t.Errorf("stats = %+v, want 1 category, 2 pages, 2 products", st)
	}
	if st.DuplicatesSkipped != 0 {
		t.Errorf("DuplicatesSkipped = %d, want 0 (in-page link dedup)", st.DuplicatesSkipped)
	}

	if got := len(sink.all()); got != 2 {
		t.Errorf("sink received %d products, want 2", got)
	}
	if c.State() != StateDone {
		t.Errorf("State() = %s, want done", c.State())
	}
}

func TestCrawlerSkipsFailedProductPage(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/products/k/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Desserts</h1>
<a href="/products/a">A</a>
<a href="/products/gone">Gone</a>
<a href="/products/b">B</a>
</body></html>`)
	})
	mux.HandleFunc("/products/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPage("Pumpkin Pie", "4.99", srv.URL+"/products/a"))
	})
	mux.HandleFunc("/products/gone", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/products/b", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPage("Pecan Pie", "6.49", srv.URL+"/products/b"))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := newTestCrawler(t, []string{srv.URL + "/products/k/1"}, nil)

	session, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(session.Products) != 2 {
		t.Fatalf("len(Products) = %d, want 2", len(session.Products))
	}
	for _, p := range session.Products {
		if strings.Contains(p.URL, "gone") {
			t.Errorf("failed page produced a record: %q", p.URL)
		}
	}
	if session.Stats.PagesFailed != 1 {
		t.Errorf("PagesFailed = %d, want 1", session.Stats.PagesFailed)
	}
}

func TestCrawlerRetriesCategoryOnce(t *testing.T) {
	var categoryHits int
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/products/k/1", func(w http.ResponseWriter, r *http.Request) {
		categoryHits++
		if categoryHits == 1 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `<html><body><h1>Sides</h1><a href="/products/a">A</a></body></html>`)
	})
	mux.HandleFunc("/products/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPage("Green Beans", "2.29", srv.URL+"/products/a"))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := newTestCrawler(t, []string{srv.URL + "/products/k/1"}, nil)

	session, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if categoryHits != 2 {
		t.Errorf("category page fetched %d times, want 2 (one retry)", categoryHits)
	}
	if session.Stats.CategoriesFetched != 1 {
		t.Errorf("CategoriesFetched = %d, want 1", session.Stats.CategoriesFetched)
	}
	if len(session.Products) != 1 {
		t.Errorf("len(Products) = %d, want 1", len(session.Products))
	}
}

func TestCrawlerAllSeedsFailed(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestCrawler(t, []string{srv.URL + "/products/k/1"}, nil)

	session, err := c.Run(context.Background())
	if !errors.Is(err, types.ErrAllSeedsFailed) {
		t.Fatalf("Run() error = %v, want ErrAllSeedsFailed", err)
	}
	if hits != 2 {
		t.Errorf("category page fetched %d times, want 2 (retry budget exhausted)", hits)
	}
	if session.Stats.CategoriesFailed != 1 {
		t.Errorf("CategoriesFailed = %d, want 1", session.Stats.CategoriesFailed)
	}
}

func TestCrawlerOneSeedFailingIsNotFatal(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/products/good/k/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Sides</h1><a href="/products/a">A</a></body></html>`)
	})
	mux.HandleFunc("/products/bad/k/2", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	mux.HandleFunc("/products/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPage("Gravy", "1.99", srv.URL+"/products/a"))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := newTestCrawler(t, []string{
		srv.URL + "/products/good/k/1",
		srv.URL + "/products/bad/k/2",
	}, nil)

	session, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v (one working seed should keep the run alive)", err)
	}
	if session.Stats.CategoriesFetched != 1 || session.Stats.CategoriesFailed != 1 {
		t.Errorf("stats = %+v, want one fetched and one failed category", session.Stats)
	}
}

func TestCrawlerCrossSeedDuplicate(t *testing.T) {
	// The same product listed on two category pages is fetched twice
	// (link dedup is per page) but recorded once.
	var productHits int
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/products/one/k/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Sides</h1><a href="/products/a">A</a></body></html>`)
	})
	mux.HandleFunc("/products/two/k/2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Mains</h1><a href="/products/a">A</a></body></html>`)
	})
	mux.HandleFunc("/products/a", func(w http.ResponseWriter, r *http.Request) {
		productHits++
		fmt.Fprint(w, productPage("Turkey Roast", "19.99", srv.URL+"/products/a"))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := newTestCrawler(t, []string{
		srv.URL + "/products/one/k/1",
		srv.URL + "/products/two/k/2",
	}, nil)

	session, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if productHits != 2 {
		t.Errorf("product page fetched %d times, want 2", productHits)
	}
	if len(session.Products) != 1 {
		t.Errorf("len(Products) = %d, want 1", len(session.Products))
	}
	if session.Stats.DuplicatesSkipped != 1 {
		t.Errorf("DuplicatesSkipped = %d, want 1", session.Stats.DuplicatesSkipped)
	}
	if session.Products[0].Subcategory != "Sides" {
		t.Errorf("Subcategory = %q, want first occurrence %q", session.Products[0].Subcategory, "Sides")
	}
}

func TestCrawlerSinkFailureDoesNotAbort(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/products/k/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Sides</h1>
<a href="/products/a">A</a>
<a href="/products/b">B</a>
</body></html>`)
	})
	mux.HandleFunc("/products/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPage("Corn", "0.99", srv.URL+"/products/a"))
	})
	mux.HandleFunc("/products/b", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPage("Peas", "1.09", srv.URL+"/products/b"))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	sink := &captureSink{storeErr: errors.New("disk full")}
	c := newTestCrawler(t, []string{srv.URL + "/products/k/1"}, sink)

	session, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(session.Products) != 2 {
		t.Errorf("len(Products) = %d, want 2 (sink failures stay local)", len(session.Products))
	}
	if session.Stats.SinkErrors != 2 {
		t.Errorf("SinkErrors = %d, want 2", session.Stats.SinkErrors)
	}
}

// --- Session Tests ---

func TestSessionAdmitRejectsDuplicates(t *testing.T) {
	s := NewSession()
	p := &types.Product{Identity: "abc123", Title: "Turkey Roast"}

	if err := s.Admit(p); err != nil {
		t.Fatalf("first Admit() error = %v", err)
	}
	if err := s.Admit(p); !errors.Is(err, types.ErrDuplicateIdentity) {
		t.Fatalf("second Admit() error = %v, want ErrDuplicateIdentity", err)
	}
	if len(s.Products) != 1 {
		t.Errorf("len(Products) = %d, want 1", len(s.Products))
	}
	if !s.Seen("abc123") || s.Seen("other") {
		t.Error("Seen() disagrees with admitted identities")
	}
	if s.Stats.ProductsRecorded != 1 || s.Stats.DuplicatesSkipped != 1 {
		t.Errorf("stats = %+v", s.Stats)
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	if NewSession().ID == NewSession().ID {
		t.Error("two sessions share an ID")
	}
}

// --- Link Discovery Tests ---

func makeResp(t *testing.T, url, body string) *types.Response {
	t.Helper()
	req, err := types.NewRequest(url)
	if err != nil {
		t.Fatalf("NewRequest(%q) error = %v", url, err)
	}
	return &types.Response{
		Request:     req,
		StatusCode:  200,
		Body:        []byte(body),
		ContentType: "text/html",
		FinalURL:    url,
	}
}

func TestDiscoverLinks(t *testing.T) {
	const listing = `<html><body>
<a href="/products/a?ref=grid#top">First</a>
<a href="https://www.example.com/products/b">Second</a>
<a href="/products/a">First again</a>
<a href="/about">Not a product</a>
<a href="mailto:shop@example.com">Mail</a>
<a href="/products/sides/k/300">Self</a>
<a href="">Empty</a>
</body></html>`

	resp := makeResp(t, "https://www.example.com/products/sides/k/300", listing)
	links, err := DiscoverLinks(resp, "/products/")
	if err != nil {
		t.Fatalf("DiscoverLinks() error = %v", err)
	}

	want := []string{
		"https://www.example.com/products/a",
		"https://www.example.com/products/b",
	}
	if len(links) != len(want) {
		t.Fatalf("links = %v, want %v", links, want)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("links[%d] = %q, want %q", i, links[i], want[i])
		}
	}
}

func TestDiscoverLinksEmptyListing(t *testing.T) {
	resp := makeResp(t, "https://www.example.com/products/k/1", "<html><body><p>Nothing here</p></body></html>")
	links, err := DiscoverLinks(resp, "/products/")
	if err != nil {
		t.Fatalf("DiscoverLinks() error = %v", err)
	}
	if len(links) != 0 {
		t.Errorf("links = %v, want none", links)
	}
}

// --- State Tests ---

func TestStateString(t *testing.T) {
	states := map[State]string{
		StateIdle:             "idle",
		StateFetchingCategory: "fetching_category",
		StateDiscoveringLinks: "discovering_links",
		StateFetchingProduct:  "fetching_product",
		StateResolving:        "resolving",
		StateRecording:        "recording",
		StateDone:             "done",
		State(99):             "unknown",
	}
	for s, want := range states {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
