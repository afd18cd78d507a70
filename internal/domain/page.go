package domain

import (
	"net/url"
	"regexp"
	"strconv"
)

var pageExpr = regexp.MustCompile(`page=(\d+)`)

// PageNumberFromURL reads the zero-based page ordinal out of a listing
// URL's query string.
func PageNumberFromURL(pageURL string) int {
	parsed, err := url.Parse(pageURL)
	if err == nil {
		if v := parsed.Query().Get("page"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	if match := pageExpr.FindStringSubmatch(pageURL); len(match) > 1 {
		n, _ := strconv.Atoi(match[1])
		return n
	}
	return 0
}
