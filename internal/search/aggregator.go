package search

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// Contribution is one provider's outcome inside a bundle. Failed or
// timed-out providers appear with Absent set instead of vanishing.
type Contribution struct {
	Provider string
	Snippets []Snippet
	Absent   bool
	Err      error
}

// Bundle is the merged, truncated context gathered for one turn
type Bundle struct {
	Contributions []Contribution
	Text          string
}

// Empty reports whether no provider contributed anything
func (b *Bundle) Empty() bool {
	return b.Text == ""
}

// Aggregator fans a question out to every relevant provider concurrently
// and folds the survivors into a bounded context bundle.
type Aggregator struct {
	providers       []Provider
	overallDeadline time.Duration
	maxResults      int
	maxTotalChars   int
}

// NewAggregator creates an aggregator over the given providers
func NewAggregator(providers []Provider, overallDeadline time.Duration, maxResults, maxTotalChars int) *Aggregator {
	if overallDeadline <= 0 {
		overallDeadline = 8 * time.Second
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	if maxTotalChars <= 0 {
		maxTotalChars = 6000
	}
	return &Aggregator{
		providers:       providers,
		overallDeadline: overallDeadline,
		maxResults:      maxResults,
		maxTotalChars:   maxTotalChars,
	}
}

// Gather launches all relevant providers and joins them under one deadline.
// A provider error or timeout yields an absent contribution, never a Gather
// error; results arriving after the deadline are discarded.
func (a *Aggregator) Gather(ctx context.Context, question string) *Bundle {
	var selected []Provider
	for _, p := range a.providers {
		if p.Relevant(question) {
			selected = append(selected, p)
		}
	}

	bundle := &Bundle{}
	if len(selected) == 0 {
		return bundle
	}

	type indexed struct {
		idx int
		c   Contribution
	}

	// Buffered so late finishers never block after the join gives up on them.
	results := make(chan indexed, len(selected))
	for i, p := range selected {
		go func(idx int, p Provider) {
			pctx, cancel := context.WithTimeout(ctx, p.Timeout())
			defer cancel()

			snippets, err := p.Search(pctx, question, a.maxResults)
			if err != nil {
				log.Warn().Err(err).Str("provider", p.Name()).Msg("context provider failed")
				results <- indexed{idx, Contribution{Provider: p.Name(), Absent: true, Err: err}}
				return
			}
			results <- indexed{idx, Contribution{Provider: p.Name(), Snippets: snippets}}
		}(i, p)
	}

	contributions := make([]Contribution, len(selected))
	for i := range contributions {
		contributions[i] = Contribution{Provider: selected[i].Name(), Absent: true}
	}

	deadline := time.NewTimer(a.overallDeadline)
	defer deadline.Stop()

	received := 0
join:
	for received < len(selected) {
		select {
		case r := <-results:
			contributions[r.idx] = r.c
			received++
		case <-deadline.C:
			log.Warn().Int("pending", len(selected)-received).Msg("context gather deadline reached")
			break join
		case <-ctx.Done():
			break join
		}
	}

	bundle.Contributions = contributions
	bundle.Text = render(contributions, a.maxTotalChars)
	return bundle
}

// render dedupes snippets by content and concatenates labeled blocks up to
// the character budget.
func render(contributions []Contribution, maxTotalChars int) string {
	seen := make(map[string]bool)
	var sb strings.Builder

	for _, c := range contributions {
		if c.Absent || len(c.Snippets) == 0 {
			continue
		}

		var block strings.Builder
		for _, s := range c.Snippets {
			content := strings.TrimSpace(s.Content)
			if content == "" || seen[content] {
				continue
			}
			seen[content] = true
			block.WriteString("- ")
			block.WriteString(content)
			block.WriteString("\n")
		}
		if block.Len() == 0 {
			continue
		}

		entry := fmt.Sprintf("[%s]\n%s", c.Provider, block.String())
		if sb.Len()+len(entry) > maxTotalChars {
			cut := maxTotalChars - sb.Len()
			// Back up to a rune boundary so the cut never emits a partial rune.
			for cut > 0 && !utf8.RuneStart(entry[cut]) {
				cut--
			}
			if cut > 0 {
				sb.WriteString(entry[:cut])
			}
			break
		}
		sb.WriteString(entry)
	}

	return strings.TrimSpace(sb.String())
}
