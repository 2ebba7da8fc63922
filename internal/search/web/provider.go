// Package web searches the open web through a JSON search API. It only runs
// for questions whose phrasing suggests comparisons or current events.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/cxlinux-ai/supportbot/internal/search"
)

const defaultTimeout = 4 * time.Second

var relevantPattern = regexp.MustCompile(`(?i)\b(vs\.?|versus|compare[ds]?|comparison|alternative[s]?|better than|latest|newest|current|recent|news|20[0-9]{2}|price of|trending)\b`)

// Provider implements search.Provider over an external web search API
type Provider struct {
	endpoint string
	apiKey   string
	client   *http.Client
	timeout  time.Duration
}

// NewProvider creates a web search provider
func NewProvider(endpoint, apiKey string, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Provider{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
	}
}

func (p *Provider) Name() string {
	return "web_search"
}

// Relevant matches comparison and current-events phrasing
func (p *Provider) Relevant(question string) bool {
	return p.endpoint != "" && relevantPattern.MatchString(question)
}

func (p *Provider) Timeout() time.Duration {
	return p.timeout
}

type webResult struct {
	Results []struct {
		Title   string  `json:"title"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search queries the search API and returns ranked snippets
func (p *Provider) Search(ctx context.Context, query string, maxResults int) ([]search.Snippet, error) {
	reqURL := fmt.Sprintf("%s?q=%s&max_results=%d", p.endpoint, url.QueryEscape(query), maxResults)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("web search returned status %d: %s", resp.StatusCode, string(body))
	}

	var result webResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode web search response: %w", err)
	}

	snippets := make([]search.Snippet, 0, len(result.Results))
	for _, r := range result.Results {
		snippets = append(snippets, search.Snippet{
			Source:  r.Title,
			Content: r.Content,
			Score:   r.Score,
		})
	}
	return snippets, nil
}
