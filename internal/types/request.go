package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request tags classify what a fetch is for. They only affect logging
// and timeouts, never the transport itself.
const (
	TagCategory = "category"
	TagProduct  = "product"
	TagImage    = "image"
)

// Request is a single outbound fetch.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Method is the HTTP method. Defaults to GET.
	Method string

	// Headers are extra HTTP headers to send with the request.
	Headers http.Header

	// Tag classifies the request: category, product or image.
	Tag string

	// ParentURL is the page this URL was discovered on, when any.
	ParentURL string

	// Timeout overrides the fetcher's default timeout when set.
	Timeout time.Duration
}

// NewRequest creates a GET Request for rawURL.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	return &Request{
		URL:     u,
		Method:  http.MethodGet,
		Headers: make(http.Header),
	}, nil
}

// URLString returns the string form of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Domain returns the hostname of the request URL.
func (r *Request) Domain() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}
