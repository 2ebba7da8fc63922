// Package sentiment scores message text for tone and frustration. Analysis is
// a pure function over weighted pattern classes so it stays deterministic and
// unit-testable with no I/O.
package sentiment

import (
	"regexp"
	"strings"
)

// Label classifies the overall tone of a message
type Label string

const (
	VeryNegative Label = "very_negative"
	Negative     Label = "negative"
	Neutral      Label = "neutral"
	Positive     Label = "positive"
	VeryPositive Label = "very_positive"
)

// Result is the derived sentiment for one message
type Result struct {
	// Score is the averaged class weight, in [-2, 2].
	Score float64
	Label Label
	// Frustration accumulates escalation-indicator weight, capped at 1.
	Frustration      float64
	ShouldEscalate   bool
	ShouldSoftenTone bool
}

const (
	softenThreshold   = 0.4
	escalateThreshold = 0.7
)

type patternClass struct {
	score    float64
	patterns []string
}

var classes = []patternClass{
	{score: -2, patterns: []string{
		"terrible", "awful", "horrible", "useless", "garbage", "worst",
		"scam", "furious", "hate this", "hate it", "hate you", "rage",
		"unacceptable", "disgusted", "this sucks", "piece of junk",
		"is down", "outage", "emergency", "lost all", "data loss",
	}},
	{score: -1, patterns: []string{
		"not working", "doesn't work", "does not work", "broken", "bug",
		"annoying", "frustrated", "frustrating", "disappointed", "bad",
		"slow", "confusing", "problem", "wrong", "failed", "failing", "crash",
	}},
	{score: 1, patterns: []string{
		"thanks", "thank you", "good", "nice", "helpful", "cool", "works now",
		"appreciate", "great", "solved", "fixed it",
	}},
	{score: 2, patterns: []string{
		"amazing", "awesome", "excellent", "perfect", "love it", "love this",
		"fantastic", "brilliant", "best",
	}},
}

var frustrationIndicators = []struct {
	weight  float64
	pattern *regexp.Regexp
}{
	{0.3, regexp.MustCompile(`(?i)\b(again|still|already (told|said|asked)|(second|third|[0-9]+(st|nd|rd|th)) time)\b`)},
	{0.3, regexp.MustCompile(`(?i)\b(i('ve| have) (tried|asked)|keeps? (happening|breaking|failing))\b`)},
	{0.2, regexp.MustCompile(`[!?]{3,}`)},
	{0.25, regexp.MustCompile(`\b[A-Z]{5,}\b`)},
	{0.3, regexp.MustCompile(`(?i)\b(nobody|no one) (helps|responds|answers)\b`)},
}

// Analyze scores a message. It never errors and has no side effects.
func Analyze(text string) Result {
	lower := strings.ToLower(text)

	var sum float64
	var matched int
	for _, class := range classes {
		for _, p := range class.patterns {
			if strings.Contains(lower, p) {
				sum += class.score
				matched++
			}
		}
	}

	score := 0.0
	if matched > 0 {
		score = sum / float64(matched)
	}

	var frustration float64
	for _, ind := range frustrationIndicators {
		if ind.pattern.MatchString(text) {
			frustration += ind.weight
		}
	}
	if frustration > 1 {
		frustration = 1
	}

	label := labelFor(score)

	return Result{
		Score:            score,
		Label:            label,
		Frustration:      frustration,
		ShouldSoftenTone: label == Negative || label == VeryNegative || frustration > softenThreshold,
		ShouldEscalate:   label == VeryNegative || frustration > escalateThreshold,
	}
}

func labelFor(score float64) Label {
	switch {
	case score <= -1.5:
		return VeryNegative
	case score < -0.25:
		return Negative
	case score >= 1.5:
		return VeryPositive
	case score > 0.25:
		return Positive
	default:
		return Neutral
	}
}
