package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

const (
	maxSearchResults     = 10
	searchTimeoutSeconds = 10
	webSearchUserAgent   = "Mozilla/5.0 (compatible; clawai/1.0)"
)

type searchParams struct {
	Query string
	Count int
}

type searchResult struct {
	Title       string
	URL         string
	Description string
}

// searchProvider is one search backend (Brave API, DuckDuckGo HTML scrape).
type searchProvider interface {
	Name() string
	Search(ctx context.Context, params searchParams) ([]searchResult, error)
}

// WebSearchTool queries search providers in order until one returns results.
type WebSearchTool struct {
	providers    []searchProvider
	defaultCount int
}

// WebSearchConfig configures the web_search provider chain.
type WebSearchConfig struct {
	BraveAPIKey string
	MaxResults  int
}

// NewWebSearchTool builds the tool with Brave first (when a key is
// configured) and DuckDuckGo as the zero-config fallback.
func NewWebSearchTool(cfg WebSearchConfig) *WebSearchTool {
	count := cfg.MaxResults
	if count <= 0 || count > maxSearchResults {
		count = 5
	}
	t := &WebSearchTool{defaultCount: count}
	if cfg.BraveAPIKey != "" {
		t.providers = append(t.providers, newBraveSearchProvider(cfg.BraveAPIKey))
	}
	t.providers = append(t.providers, newDuckDuckGoSearchProvider())
	return t
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return "Search the web and return a list of results (title, url, snippet)."
}

func (t *WebSearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Search query",
			},
			"count": map[string]interface{}{
				"type":        "integer",
				"description": "Number of results (1-10)",
				"minimum":     1,
				"maximum":     maxSearchResults,
			},
		},
		"required": []interface{}{"query"},
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	query := stringArg(args, "query")
	count := intArg(args, "count", t.defaultCount)
	if count < 1 {
		count = 1
	}
	if count > maxSearchResults {
		count = maxSearchResults
	}

	var lastErr error
	for _, p := range t.providers {
		results, err := p.Search(ctx, searchParams{Query: query, Count: count})
		if err != nil {
			slog.Warn("search provider failed", "provider", p.Name(), "error", err)
			lastErr = err
			continue
		}
		return NewResult(renderSearchResults(query, results))
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"error": fmt.Sprintf("all search providers failed: %v", lastErr),
		"query": query,
	})
	return ErrorResult(string(payload))
}

func renderSearchResults(query string, results []searchResult) string {
	items := make([]map[string]interface{}, 0, len(results))
	for i, r := range results {
		items = append(items, map[string]interface{}{
			"rank":    i + 1,
			"title":   r.Title,
			"url":     r.URL,
			"snippet": r.Description,
		})
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"query":   query,
		"count":   len(items),
		"results": items,
	})
	return string(payload)
}
