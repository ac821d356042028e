package crawler

import (
	"net/url"
	"path"
	"strings"
)

// shouldCrawl checks if a discovered link may enter the frontier.
//
// Logic:
//  1. Only http and https links are fetchable (mailto:, javascript: etc. are dropped)
//  2. If the path matches any ignore pattern, skip it
//  3. If follow patterns are set and the path matches none, skip it
//  4. Otherwise, crawl it
func (s *Spider) shouldCrawl(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return false
	}

	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, p) {
			return false
		}
	}

	if len(s.followPatterns) == 0 {
		return true
	}
	for _, pattern := range s.followPatterns {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// withinDepth reports whether links found at depth may still be followed.
// A negative maxDepth means unlimited.
func (s *Spider) withinDepth(depth int) bool {
	return s.maxDepth < 0 || depth < s.maxDepth
}

// matchPattern checks if a URL path matches a glob pattern.
//
//   - "/blog/*" matches "/blog" and everything below it
//   - "*.pdf" matches any path whose last segment ends in .pdf
//   - other patterns use path.Match, so * stays within one segment
func matchPattern(pattern, urlPath string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}

	if matched, err := path.Match(pattern, urlPath); err == nil && matched {
		return true
	}

	// Patterns without a slash apply to the last segment only.
	if !strings.Contains(pattern, "/") {
		matched, err := path.Match(pattern, path.Base(urlPath))
		return err == nil && matched
	}

	return false
}
