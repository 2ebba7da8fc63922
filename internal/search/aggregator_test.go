package search

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

type stubProvider struct {
	name     string
	relevant bool
	timeout  time.Duration
	delay    time.Duration
	snippets []Snippet
	err      error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Relevant(question string) bool { return s.relevant }
func (s *stubProvider) Timeout() time.Duration {
	if s.timeout > 0 {
		return s.timeout
	}
	return time.Second
}

func (s *stubProvider) Search(ctx context.Context, query string, maxResults int) ([]Snippet, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.snippets, s.err
}

func TestAggregator_MergesRelevantProviders(t *testing.T) {
	a := NewAggregator([]Provider{
		&stubProvider{name: "kb", relevant: true, snippets: []Snippet{{Source: "kb", Content: "reset your token"}}},
		&stubProvider{name: "tracker", relevant: true, snippets: []Snippet{{Source: "tracker", Content: "#42 token expiry bug"}}},
	}, time.Second, 5, 6000)

	bundle := a.Gather(context.Background(), "my token expired")

	assert.False(t, bundle.Empty())
	assert.Len(t, bundle.Contributions, 2)
	assert.Contains(t, bundle.Text, "[kb]")
	assert.Contains(t, bundle.Text, "reset your token")
	assert.Contains(t, bundle.Text, "[tracker]")
	assert.Contains(t, bundle.Text, "#42 token expiry bug")
}

func TestAggregator_IrrelevantProvidersAreNotCalled(t *testing.T) {
	a := NewAggregator([]Provider{
		&stubProvider{name: "kb", relevant: true, snippets: []Snippet{{Content: "from kb"}}},
		&stubProvider{name: "web", relevant: false, snippets: []Snippet{{Content: "from web"}}},
	}, time.Second, 5, 6000)

	bundle := a.Gather(context.Background(), "how do I log in?")

	assert.Len(t, bundle.Contributions, 1)
	assert.Equal(t, "kb", bundle.Contributions[0].Provider)
	assert.NotContains(t, bundle.Text, "from web")
}

func TestAggregator_FailedProviderIsAbsentNotFatal(t *testing.T) {
	a := NewAggregator([]Provider{
		&stubProvider{name: "kb", relevant: true, snippets: []Snippet{{Content: "still here"}}},
		&stubProvider{name: "web", relevant: true, err: assert.AnError},
	}, time.Second, 5, 6000)

	bundle := a.Gather(context.Background(), "anything")

	assert.Len(t, bundle.Contributions, 2)
	byName := map[string]Contribution{}
	for _, c := range bundle.Contributions {
		byName[c.Provider] = c
	}
	assert.False(t, byName["kb"].Absent)
	assert.True(t, byName["web"].Absent)
	assert.Error(t, byName["web"].Err)
	assert.Contains(t, bundle.Text, "still here")
}

func TestAggregator_SlowProviderTimesOutAlone(t *testing.T) {
	a := NewAggregator([]Provider{
		&stubProvider{name: "fast", relevant: true, snippets: []Snippet{{Content: "quick result"}}},
		&stubProvider{name: "slow", relevant: true, timeout: 20 * time.Millisecond, delay: 500 * time.Millisecond},
	}, time.Second, 5, 6000)

	bundle := a.Gather(context.Background(), "anything")

	byName := map[string]Contribution{}
	for _, c := range bundle.Contributions {
		byName[c.Provider] = c
	}
	assert.False(t, byName["fast"].Absent)
	assert.True(t, byName["slow"].Absent)
}

func TestAggregator_OverallDeadlineBoundsGather(t *testing.T) {
	a := NewAggregator([]Provider{
		&stubProvider{name: "glacial", relevant: true, timeout: 10 * time.Second, delay: 5 * time.Second},
	}, 50*time.Millisecond, 5, 6000)

	start := time.Now()
	bundle := a.Gather(context.Background(), "anything")

	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, bundle.Contributions[0].Absent)
	assert.True(t, bundle.Empty())
}

func TestAggregator_NoProvidersYieldsEmptyBundle(t *testing.T) {
	a := NewAggregator(nil, time.Second, 5, 6000)

	bundle := a.Gather(context.Background(), "anything")

	assert.True(t, bundle.Empty())
	assert.Empty(t, bundle.Contributions)
}

func TestAggregator_DuplicateSnippetsAppearOnce(t *testing.T) {
	a := NewAggregator([]Provider{
		&stubProvider{name: "kb", relevant: true, snippets: []Snippet{{Content: "shared answer"}}},
		&stubProvider{name: "web", relevant: true, snippets: []Snippet{{Content: "shared answer"}}},
	}, time.Second, 5, 6000)

	bundle := a.Gather(context.Background(), "anything")

	count := 0
	for i := 0; i+13 <= len(bundle.Text); i++ {
		if bundle.Text[i:i+13] == "shared answer" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestAggregator_TextRespectsCharBudget(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	a := NewAggregator([]Provider{
		&stubProvider{name: "kb", relevant: true, snippets: []Snippet{{Content: string(long)}, {Content: string(long) + "y"}}},
	}, time.Second, 5, 600)

	bundle := a.Gather(context.Background(), "anything")

	assert.LessOrEqual(t, len(bundle.Text), 600)
}

func TestAggregator_TruncationKeepsValidUTF8(t *testing.T) {
	a := NewAggregator([]Provider{
		&stubProvider{name: "kb", relevant: true, snippets: []Snippet{{Content: strings.Repeat("é", 400)}}},
	}, time.Second, 5, 100)

	bundle := a.Gather(context.Background(), "anything")

	assert.LessOrEqual(t, len(bundle.Text), 100)
	assert.True(t, utf8.ValidString(bundle.Text))
}
