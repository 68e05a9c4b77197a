package crawl

import (
	"time"

	"github.com/google/uuid"

	"github.com/shelfhound/shelfhound/internal/types"
)

// Stats counts the work done during one crawl run. The crawl is single
// threaded, so plain ints are all that is needed.
type Stats struct {
	CategoriesFetched int
	CategoriesFailed  int
	PagesFetched      int
	PagesFailed       int
	ProductsRecorded  int
	ProductsRejected  int
	DuplicatesSkipped int
	SinkErrors        int
}

// Snapshot returns the stats as a loggable map.
func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"categories_fetched": s.CategoriesFetched,
		"categories_failed":  s.CategoriesFailed,
		"pages_fetched":      s.PagesFetched,
		"pages_failed":       s.PagesFailed,
		"products_recorded":  s.ProductsRecorded,
		"products_rejected":  s.ProductsRejected,
		"duplicates_skipped": s.DuplicatesSkipped,
		"sink_errors":        s.SinkErrors,
	}
}

// Session holds everything accumulated during a single crawler run: the
// ordered product list, the identity seen-set backing duplicate
// detection, and counters. It lives for one run and is never persisted.
type Session struct {
	ID        string
	StartedAt time.Time
	Products  []*types.Product
	Stats     Stats

	seen map[string]struct{}
}

// NewSession creates an empty session with a fresh run ID.
func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		seen:      make(map[string]struct{}),
	}
}

// Admit appends p to the session unless a product with the same
// identity was already admitted during this run. Duplicates return
// ErrDuplicateIdentity, which is a skip signal rather than a failure.
func (s *Session) Admit(p *types.Product) error {
	if _, ok := s.seen[p.Identity]; ok {
		s.Stats.DuplicatesSkipped++
		return types.ErrDuplicateIdentity
	}
	s.seen[p.Identity] = struct{}{}
	s.Products = append(s.Products, p)
	s.Stats.ProductsRecorded++
	return nil
}

// Seen reports whether an identity has been admitted this run.
func (s *Session) Seen(identity string) bool {
	_, ok := s.seen[identity]
	return ok
}

// Elapsed reports how long the session has been running.
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}
