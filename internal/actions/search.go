package actions

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// WebSearch 通过 DuckDuckGo 的 HTML 端点搜索。
// WebSearch queries DuckDuckGo's HTML endpoint.
type WebSearch struct {
	fetcher *PageFetcher
	limit   int
}

func NewWebSearch(timeout time.Duration) *WebSearch {
	return &WebSearch{fetcher: NewPageFetcher(timeout), limit: 5}
}

var resultLinkRe = regexp.MustCompile(`https?://[^\s"<>]+`)

func (s *WebSearch) Web(ctx context.Context, query string) (string, error) {
	endpoint := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(query)
	text, err := s.fetcher.Visit(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("web search %q: %w", query, err)
	}

	seen := map[string]bool{}
	var lines []string
	for _, link := range resultLinkRe.FindAllString(text, -1) {
		if strings.Contains(link, "duckduckgo.com") {
			continue
		}
		if seen[link] {
			continue
		}
		seen[link] = true
		lines = append(lines, "- "+link)
		if len(lines) >= s.limit {
			break
		}
	}
	if len(lines) == 0 {
		return fmt.Sprintf("🔍 No results for %q", query), nil
	}
	return fmt.Sprintf("🔍 Results for %q:\n%s", query, strings.Join(lines, "\n")), nil
}
