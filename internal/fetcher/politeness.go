package fetcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/shelfhound/shelfhound/internal/types"
)

// PoliteFetcher wraps another Fetcher and sleeps before every single
// fetch, no exceptions. Category pages, product pages and images all
// pass through it, so the politeness guarantee lives in one place.
// Image fetches use their own, typically shorter, delay.
type PoliteFetcher struct {
	inner      Fetcher
	pageDelay  time.Duration
	imageDelay time.Duration
	sleep      func(time.Duration)
	logger     *slog.Logger
}

// NewPoliteFetcher wraps inner with per-fetch delays.
func NewPoliteFetcher(inner Fetcher, pageDelay, imageDelay time.Duration, logger *slog.Logger) *PoliteFetcher {
	return &PoliteFetcher{
		inner:      inner,
		pageDelay:  pageDelay,
		imageDelay: imageDelay,
		sleep:      time.Sleep,
		logger:     logger.With("component", "politeness"),
	}
}

// Fetch sleeps, then delegates to the wrapped fetcher.
func (f *PoliteFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	delay := f.pageDelay
	if req.Tag == types.TagImage {
		delay = f.imageDelay
	}
	if delay > 0 {
		f.sleep(delay)
	}
	return f.inner.Fetch(ctx, req)
}

// Close closes the wrapped fetcher.
func (f *PoliteFetcher) Close() error {
	return f.inner.Close()
}

// Type returns the wrapped fetcher's type identifier.
func (f *PoliteFetcher) Type() string {
	return f.inner.Type()
}
