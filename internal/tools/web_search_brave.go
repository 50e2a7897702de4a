package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Brave Search API backend. Requires a subscription token.
type braveSearchProvider struct {
	apiKey string
	client *http.Client
}

const braveSearchEndpoint = "https://api.search.brave.com/res/v1/web/search"

func newBraveSearchProvider(apiKey string) *braveSearchProvider {
	return &braveSearchProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: searchTimeoutSeconds * time.Second},
	}
}

func (p *braveSearchProvider) Name() string { return "brave" }

type braveWebResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (p *braveSearchProvider) Search(ctx context.Context, params searchParams) ([]searchResult, error) {
	query := url.Values{
		"q":     {params.Query},
		"count": {strconv.Itoa(params.Count)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, braveSearchEndpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave API status %d", resp.StatusCode)
	}

	var decoded braveWebResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("brave response: %w", err)
	}

	out := make([]searchResult, 0, params.Count)
	for _, r := range decoded.Web.Results {
		if len(out) == params.Count {
			break
		}
		out = append(out, searchResult{Title: r.Title, URL: r.URL, Description: r.Description})
	}
	return out, nil
}
