package agent

import "strings"

// MessageSizeLimit is the host platform's per-message character limit
const MessageSizeLimit = 2000

// splitMessage breaks an answer that exceeds the platform limit into parts,
// preferring paragraph then line then word boundaries before hard-splitting.
func splitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MessageSizeLimit
	}
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var parts []string
	remaining := text
	for len([]rune(remaining)) > limit {
		// window is a byte-prefix of remaining, so byte offsets into it
		// are valid offsets into remaining.
		window := string([]rune(remaining)[:limit])

		cut := strings.LastIndex(window, "\n\n")
		if cut < len(window)/2 {
			cut = strings.LastIndex(window, "\n")
		}
		if cut < len(window)/2 {
			cut = strings.LastIndex(window, " ")
		}
		if cut < len(window)/2 {
			cut = len(window)
		}

		part := strings.TrimSpace(window[:cut])
		if part != "" {
			parts = append(parts, part)
		}
		remaining = strings.TrimSpace(remaining[cut:])
	}

	if remaining != "" {
		parts = append(parts, remaining)
	}
	return parts
}
