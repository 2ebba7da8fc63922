package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitMessage_ShortTextIsSinglePart(t *testing.T) {
	parts := splitMessage("hello there", 2000)
	assert.Equal(t, []string{"hello there"}, parts)
}

func TestSplitMessage_PrefersParagraphBoundary(t *testing.T) {
	first := strings.Repeat("a", 60)
	second := strings.Repeat("b", 60)
	text := first + "\n\n" + second

	parts := splitMessage(text, 100)

	assert.Equal(t, []string{first, second}, parts)
}

func TestSplitMessage_FallsBackToWordBoundary(t *testing.T) {
	text := strings.Repeat("word ", 50) // 250 chars, no newlines
	parts := splitMessage(text, 100)

	assert.Greater(t, len(parts), 1)
	for _, p := range parts {
		assert.LessOrEqual(t, len([]rune(p)), 100)
		assert.False(t, strings.HasPrefix(p, " "))
		assert.False(t, strings.HasSuffix(p, " "))
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(parts, " ")))
}

func TestSplitMessage_HardSplitsUnbrokenRun(t *testing.T) {
	text := strings.Repeat("x", 250)
	parts := splitMessage(text, 100)

	assert.Equal(t, 3, len(parts))
	total := 0
	for _, p := range parts {
		assert.LessOrEqual(t, len([]rune(p)), 100)
		total += len(p)
	}
	assert.Equal(t, 250, total)
}

func TestSplitMessage_MultibyteRunesStayIntact(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 30)
	parts := splitMessage(text, 50)

	for _, p := range parts {
		assert.LessOrEqual(t, len([]rune(p)), 50)
		assert.True(t, strings.HasPrefix(p, "héllo") || strings.HasPrefix(p, "wörld"))
	}
}
