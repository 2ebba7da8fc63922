// Package tracker searches the public issue tracker for known problems. It
// only runs for error-shaped questions.
package tracker

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

var relevantPattern = regexp.MustCompile(`(?i)\b(error|exception|crash(es|ed|ing)?|stack.?trace|fail(s|ed|ing|ure)?|broken|bug|not working|doesn'?t work|freezes?|hangs?|timeout)\b`)

// Provider implements search.Provider over the issue tracker search API
type Provider struct {
	endpoint string
	token    string
	client   *http.Client
	timeout  time.Duration
}

// NewProvider creates an issue tracker provider
func NewProvider(endpoint, token string, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Provider{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
	}
}

func (p *Provider) Name() string {
	return "issue_tracker"
}

// Relevant matches error-shaped questions
func (p *Provider) Relevant(question string) bool {
	return p.endpoint != "" && relevantPattern.MatchString(question)
}

func (p *Provider) Timeout() time.Duration {
	return p.timeout
}

type trackerResult struct {
	Items []struct {
		Title  string `json:"title"`
		Body   string `json:"body"`
		State  string `json:"state"`
		Number int    `json:"number"`
	} `json:"items"`
}

// Search queries the tracker and returns matching issues as snippets
func (p *Provider) Search(ctx context.Context, query string, maxResults int) ([]search.Snippet, error) {
	reqURL := fmt.Sprintf("%s?q=%s&per_page=%d", p.endpoint, url.QueryEscape(query), maxResults)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tracker request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tracker returned status %d: %s", resp.StatusCode, string(body))
	}

	var result trackerResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode tracker response: %w", err)
	}

	snippets := make([]search.Snippet, 0, len(result.Items))
	for _, item := range result.Items {
		body := item.Body
		if len(body) > 300 {
			body = body[:300] + "..."
		}
		snippets = append(snippets, search.Snippet{
			Source:  fmt.Sprintf("issue #%d", item.Number),
			Content: fmt.Sprintf("#%d (%s) %s: %s", item.Number, item.State, item.Title, body),
		})
	}
	return snippets, nil
}
