package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// DuckDuckGo HTML backend. Needs no credentials, so it is always the
// last provider in the chain.
type duckDuckGoSearchProvider struct {
	client *http.Client
}

func newDuckDuckGoSearchProvider() *duckDuckGoSearchProvider {
	return &duckDuckGoSearchProvider{
		client: &http.Client{Timeout: searchTimeoutSeconds * time.Second},
	}
}

func (p *duckDuckGoSearchProvider) Name() string { return "duckduckgo" }

func (p *duckDuckGoSearchProvider) Search(ctx context.Context, params searchParams) ([]searchResult, error) {
	endpoint := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(params.Query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", webSearchUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()

	page, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo response: %w", err)
	}
	return extractDDGResults(string(page), params.Count)
}

var (
	ddgLinkRe    = regexp.MustCompile(`<a[^>]*class="[^"]*result__a[^"]*"[^>]*href="([^"]+)"[^>]*>([\s\S]*?)</a>`)
	ddgSnippetRe = regexp.MustCompile(`<a class="result__snippet[^"]*".*?>([\s\S]*?)</a>`)
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
)

// extractDDGResults scrapes result anchors out of the DuckDuckGo HTML
// page. Links arrive wrapped in a redirect with the target in uddg=.
func extractDDGResults(page string, count int) ([]searchResult, error) {
	links := ddgLinkRe.FindAllStringSubmatch(page, count+5)
	if len(links) == 0 {
		return nil, nil
	}
	snippets := ddgSnippetRe.FindAllStringSubmatch(page, count+5)

	var out []searchResult
	for i, link := range links {
		if i == count {
			break
		}
		r := searchResult{
			URL:   unwrapDDGRedirect(link[1]),
			Title: stripTags(link[2]),
		}
		if i < len(snippets) {
			r.Description = stripTags(snippets[i][1])
		}
		out = append(out, r)
	}
	return out, nil
}

func unwrapDDGRedirect(raw string) string {
	if !strings.Contains(raw, "uddg=") {
		return raw
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	_, target, ok := strings.Cut(decoded, "uddg=")
	if !ok {
		return raw
	}
	if amp := strings.Index(target, "&"); amp != -1 {
		target = target[:amp]
	}
	return target
}

func stripTags(html string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(html, ""))
}
