package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const (
	fetchTimeoutSeconds   = 30
	fetchMaxRedirects     = 5
	fetchDefaultMaxChars  = 50000
	fetchMaxResponseBytes = 4 << 20 // 4 MiB body cap before extraction
)

// WebFetchTool retrieves a URL and extracts readable content.
// HTML goes through readability extraction; JSON is pretty-printed;
// everything else passes through raw.
type WebFetchTool struct {
	client          *http.Client
	defaultMaxChars int
}

// NewWebFetchTool creates the web_fetch tool.
func NewWebFetchTool() *WebFetchTool {
	return &WebFetchTool{
		client: &http.Client{
			Timeout: fetchTimeoutSeconds * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= fetchMaxRedirects {
					return fmt.Errorf("stopped after %d redirects", fetchMaxRedirects)
				}
				// Redirects must not escape into internal networks either.
				if err := checkSSRF(req.URL.String()); err != nil {
					return err
				}
				return nil
			},
		},
		defaultMaxChars: fetchDefaultMaxChars,
	}
}

func (t *WebFetchTool) Name() string { return "web_fetch" }

func (t *WebFetchTool) Description() string {
	return "Fetch a URL and extract readable content."
}

func (t *WebFetchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "URL to fetch",
			},
			"extractMode": map[string]interface{}{
				"type": "string",
				"enum": []interface{}{"markdown", "text"},
			},
			"maxChars": map[string]interface{}{
				"type":        "integer",
				"minimum":     100,
				"description": "Maximum characters to return",
			},
		},
		"required": []interface{}{"url"},
	}
}

func (t *WebFetchTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	rawURL := stringArg(args, "url")
	extractMode := stringArg(args, "extractMode")
	if extractMode == "" {
		extractMode = "markdown"
	}
	maxChars := intArg(args, "maxChars", t.defaultMaxChars)

	if err := validateURL(rawURL); err != nil {
		return t.errorResult(rawURL, err)
	}
	if err := checkSSRF(rawURL); err != nil {
		return t.errorResult(rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return t.errorResult(rawURL, err)
	}
	req.Header.Set("User-Agent", webSearchUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return t.errorResult(rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxResponseBytes))
	if err != nil {
		return t.errorResult(rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return t.errorResult(rawURL, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	text, extractor := extractContent(body, contentType, resp.Request.URL, extractMode)

	truncated := len(text) > maxChars
	if truncated {
		text = text[:maxChars]
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"url":       rawURL,
		"finalUrl":  resp.Request.URL.String(),
		"status":    resp.StatusCode,
		"extractor": extractor,
		"length":    len(text),
		"truncated": truncated,
		"text":      text,
	})
	return NewResult(string(payload))
}

func (t *WebFetchTool) errorResult(rawURL string, err error) *Result {
	payload, _ := json.Marshal(map[string]interface{}{
		"error": err.Error(),
		"url":   rawURL,
	})
	return ErrorResult(string(payload))
}

// extractContent picks the extraction strategy by content type.
func extractContent(body []byte, contentType string, pageURL *url.URL, mode string) (string, string) {
	switch {
	case strings.Contains(contentType, "application/json"):
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err == nil {
			return buf.String(), "json"
		}
		return string(body), "raw"

	case strings.Contains(contentType, "text/html"),
		strings.HasPrefix(strings.ToLower(strings.TrimSpace(string(body[:min(64, len(body))]))), "<!doctype"):
		article, err := readability.FromReader(bytes.NewReader(body), pageURL)
		if err != nil {
			return string(body), "raw"
		}
		var text string
		if mode == "text" {
			text = normalizeWhitespace(article.TextContent)
		} else {
			text = htmlToMarkdown(article.Content)
		}
		if article.Title != "" {
			text = "# " + article.Title + "\n\n" + text
		}
		return text, "readability"

	default:
		return string(body), "raw"
	}
}
