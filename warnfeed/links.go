package warnfeed

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoXLSXLink is returned when the listing page links no XLSX report.
var ErrNoXLSXLink = errors.New("no XLSX link found on WARN page")

// ExtractXLSXURL returns the absolute URL of the WARN report linked from the
// listing page. Links mentioning "warn" win over other spreadsheets; within
// each group the first link in document order is used.
func ExtractXLSXURL(html, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse WARN page: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	var warnLink, anyLink *url.URL
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil || !strings.HasSuffix(strings.ToLower(ref.Path), ".xlsx") {
			return true
		}

		if anyLink == nil {
			anyLink = ref
		}
		if strings.Contains(strings.ToLower(href), "warn") {
			warnLink = ref
			return false
		}
		return true
	})

	chosen := warnLink
	if chosen == nil {
		chosen = anyLink
	}
	if chosen == nil {
		return "", ErrNoXLSXLink
	}
	return base.ResolveReference(chosen).String(), nil
}
