package record

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// CanonicalizeURL normalizes a product URL so that equivalent addresses
// compare equal:
// - lowercases scheme and host
// - removes fragment
// - sorts query parameters
// - removes trailing slash (except root)
// - removes default ports (80 for http, 443 for https)
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	// Lowercase scheme and host
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// Remove fragment
	u.Fragment = ""

	// Remove default ports
	host := u.Hostname()
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = host
	}

	// Sort query parameters
	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	// Remove trailing slash (except root "/")
	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}

	// Ensure path is at least "/"
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// Identity derives the stable identity of a product from its title and
// canonical URL. The title is lowercased and whitespace-collapsed first,
// so the same product listed at equivalent addresses collapses to one
// identity within a run.
func Identity(title, canonicalURL string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(title), " "))
	h := sha256.Sum256([]byte(normalized + "\n" + canonicalURL))
	return hex.EncodeToString(h[:16]) // 128-bit identity
}
