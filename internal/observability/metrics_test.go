package observability

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelError,
}))

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics(testLogger)
	m.PagesFetched.Add(3)
	m.ProductsRecorded.Add(2)
	m.DuplicatesSkipped.Add(1)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"shelfhound_pages_fetched_total 3",
		"shelfhound_products_recorded_total 2",
		"shelfhound_duplicates_skipped_total 1",
		"shelfhound_images_downloaded_total 0",
		"# TYPE shelfhound_pages_fetched_total counter",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics(testLogger)
	m.CategoriesFetched.Add(1)
	m.ImagesFailed.Add(4)

	snap := m.Snapshot()
	if snap["categories_fetched"] != 1 {
		t.Errorf("categories_fetched = %d, want 1", snap["categories_fetched"])
	}
	if snap["images_failed"] != 4 {
		t.Errorf("images_failed = %d, want 4", snap["images_failed"])
	}
	if snap["sink_errors"] != 0 {
		t.Errorf("sink_errors = %d, want 0", snap["sink_errors"])
	}
}
