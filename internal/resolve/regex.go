package resolve

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shelfhound/shelfhound/internal/config"
)

// RegexStrategy answers regex queries against the raw page text.
// Compiled patterns are cached across pages.
type RegexStrategy struct {
	logger *slog.Logger
	cache  map[string]*regexp.Regexp
}

// NewRegexStrategy creates a regex strategy.
func NewRegexStrategy(logger *slog.Logger) *RegexStrategy {
	return &RegexStrategy{
		logger: logger.With("component", "regex_strategy"),
		cache:  make(map[string]*regexp.Regexp),
	}
}

// Extract returns the first match of the query's pattern. With capture
// groups the first group is returned, otherwise the whole match.
func (s *RegexStrategy) Extract(page *Page, q config.Query) (string, error) {
	re, err := s.getOrCompile(q.Pattern)
	if err != nil {
		return "", err
	}

	match := re.FindStringSubmatch(page.Body)
	if match == nil {
		return "", nil
	}
	if len(match) > 1 {
		return strings.TrimSpace(match[1]), nil
	}
	return strings.TrimSpace(match[0]), nil
}

// Name implements Strategy.
func (s *RegexStrategy) Name() string { return "regex" }

// getOrCompile returns a cached compiled regex or compiles and caches a new one.
func (s *RegexStrategy) getOrCompile(pattern string) (*regexp.Regexp, error) {
	if re, ok := s.cache[pattern]; ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}

	s.cache[pattern] = re
	return re, nil
}
