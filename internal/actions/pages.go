package actions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// maxPageBytes 抓取响应体上限。
// maxPageBytes caps the fetched response body.
const maxPageBytes = 512 * 1024

// PageFetcher 无浏览器时直接抓取页面并抽取纯文本。
// PageFetcher fetches a page directly and extracts plain text when no browser
// is attached.
type PageFetcher struct {
	client *http.Client
}

func NewPageFetcher(timeout time.Duration) *PageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PageFetcher{client: &http.Client{Timeout: timeout}}
}

func (p *PageFetcher) Visit(ctx context.Context, rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("visit %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", "valet/1.0")
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("visit %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("visit %s: HTTP %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rawURL, err)
	}
	ct := resp.Header.Get("Content-Type")
	if strings.Contains(ct, "text/html") {
		return fmt.Sprintf("🌐 %s\n\n%s", rawURL, extractText(string(body))), nil
	}
	return fmt.Sprintf("🌐 %s\n\n%s", rawURL, string(body)), nil
}

// extractText 从 HTML 中抽取可见文本，跳过 script/style。
// extractText pulls visible text out of HTML, skipping script and style.
func extractText(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(b.String())
}
