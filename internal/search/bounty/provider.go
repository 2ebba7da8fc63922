// Package bounty searches the community bounty board for open rewards. It
// only runs when the question mentions bounties or rewards.
package bounty

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

const defaultTimeout = 3 * time.Second

var relevantPattern = regexp.MustCompile(`(?i)\b(bount(y|ies)|reward[s]?|paid task[s]?|earn|payout[s]?)\b`)

// Provider implements search.Provider over the bounty board API
type Provider struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
}

// NewProvider creates a bounty board provider
func NewProvider(endpoint string, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Provider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
	}
}

func (p *Provider) Name() string {
	return "bounty_board"
}

// Relevant matches bounty and reward phrasing
func (p *Provider) Relevant(question string) bool {
	return p.endpoint != "" && relevantPattern.MatchString(question)
}

func (p *Provider) Timeout() time.Duration {
	return p.timeout
}

type bountyResult struct {
	Bounties []struct {
		Title  string `json:"title"`
		Amount string `json:"amount"`
		Status string `json:"status"`
		URL    string `json:"url"`
	} `json:"bounties"`
}

// Search lists open bounties matching the query
func (p *Provider) Search(ctx context.Context, query string, maxResults int) ([]search.Snippet, error) {
	reqURL := fmt.Sprintf("%s?q=%s&limit=%d&status=open", p.endpoint, url.QueryEscape(query), maxResults)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bounty board request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bounty board returned status %d: %s", resp.StatusCode, string(body))
	}

	var result bountyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode bounty board response: %w", err)
	}

	snippets := make([]search.Snippet, 0, len(result.Bounties))
	for _, b := range result.Bounties {
		snippets = append(snippets, search.Snippet{
			Source:  b.URL,
			Content: fmt.Sprintf("%s (%s, %s) %s", b.Title, b.Amount, b.Status, b.URL),
		})
	}
	return snippets, nil
}
