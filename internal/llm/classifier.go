package llm

import (
	"regexp"
	"strings"
)

// Tier identifies the cost/quality class of a model profile
type Tier string

const (
	TierFast    Tier = "fast"
	TierQuality Tier = "quality"
)

// Profile is the generation budget chosen for one question
type Profile struct {
	Tier        Tier
	MaxTokens   int
	Temperature float32
}

const (
	fastMaxTokens    = 300
	qualityMaxTokens = 800
	qualityTemp      = 0.7

	// Questions longer than this never take the fast path.
	simpleQuestionMaxLen = 100
)

var simplePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(what|who|when|where|which)\s+(is|are|was|were)\b`),
	regexp.MustCompile(`^(is|are|was|were|does|do|did|can|could|will|would|should)\b.*\?$`),
	regexp.MustCompile(`^how\s+(much|many|long|old)\b`),
	regexp.MustCompile(`^(yes|no|ok|okay|thanks|thank you|ty|got it)\b`),
}

// Classify routes a question to a model profile by pattern and length alone.
// Short simple interrogatives take the cheap tier; everything else pays for
// the quality tier with a non-zero temperature.
func Classify(question string) Profile {
	q := strings.TrimSpace(strings.ToLower(question))

	if len(q) <= simpleQuestionMaxLen {
		for _, p := range simplePatterns {
			if p.MatchString(q) {
				return Profile{
					Tier:        TierFast,
					MaxTokens:   fastMaxTokens,
					Temperature: 0,
				}
			}
		}
	}

	return Profile{
		Tier:        TierQuality,
		MaxTokens:   qualityMaxTokens,
		Temperature: qualityTemp,
	}
}

// FastProfile returns the degraded profile used when the quality tier fails
func FastProfile() Profile {
	return Profile{
		Tier:        TierFast,
		MaxTokens:   fastMaxTokens,
		Temperature: 0,
	}
}
