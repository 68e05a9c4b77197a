package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational counters for a crawl. The crawl itself is
// single threaded, but the exposition endpoint reads these from its own
// goroutine, so the counters are atomic.
type Metrics struct {
	// Page metrics
	CategoriesFetched atomic.Int64
	CategoriesFailed  atomic.Int64
	PagesFetched      atomic.Int64
	PagesFailed       atomic.Int64
	BytesDownloaded   atomic.Int64

	// Record metrics
	ProductsRecorded  atomic.Int64
	ProductsRejected  atomic.Int64
	DuplicatesSkipped atomic.Int64

	// Image metrics
	ImagesDownloaded atomic.Int64
	ImagesSkipped    atomic.Int64
	ImagesFailed     atomic.Int64

	// Sink metrics
	SinkErrors atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"shelfhound_categories_fetched_total", "Total category pages fetched", m.CategoriesFetched.Load()},
		{"shelfhound_categories_failed_total", "Total category pages that stayed unreachable", m.CategoriesFailed.Load()},
		{"shelfhound_pages_fetched_total", "Total product pages fetched", m.PagesFetched.Load()},
		{"shelfhound_pages_failed_total", "Total product pages that failed to fetch", m.PagesFailed.Load()},
		{"shelfhound_bytes_downloaded_total", "Total bytes downloaded", m.BytesDownloaded.Load()},
		{"shelfhound_products_recorded_total", "Total products recorded", m.ProductsRecorded.Load()},
		{"shelfhound_products_rejected_total", "Total pages rejected by validation", m.ProductsRejected.Load()},
		{"shelfhound_duplicates_skipped_total", "Total duplicate identities skipped", m.DuplicatesSkipped.Load()},
		{"shelfhound_images_downloaded_total", "Total images downloaded", m.ImagesDownloaded.Load()},
		{"shelfhound_images_skipped_total", "Total images already on disk", m.ImagesSkipped.Load()},
		{"shelfhound_images_failed_total", "Total image downloads that failed", m.ImagesFailed.Load()},
		{"shelfhound_sink_errors_total", "Total sink write failures", m.SinkErrors.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"categories_fetched": m.CategoriesFetched.Load(),
		"categories_failed":  m.CategoriesFailed.Load(),
		"pages_fetched":      m.PagesFetched.Load(),
		"pages_failed":       m.PagesFailed.Load(),
		"bytes_downloaded":   m.BytesDownloaded.Load(),
		"products_recorded":  m.ProductsRecorded.Load(),
		"products_rejected":  m.ProductsRejected.Load(),
		"duplicates_skipped": m.DuplicatesSkipped.Load(),
		"images_downloaded":  m.ImagesDownloaded.Load(),
		"images_skipped":     m.ImagesSkipped.Load(),
		"images_failed":      m.ImagesFailed.Load(),
		"sink_errors":        m.SinkErrors.Load(),
	}
}
