package agent

import "errors"

// ErrQuotaExceeded is returned when a non-privileged identity is out of
// daily answers. Non-fatal, user-visible, no retry.
var ErrQuotaExceeded = errors.New("daily question limit reached")

// User-facing texts for the failure classes the orchestrator absorbs.
// Anything that changes the answer's trustworthiness is said in plain
// language instead of leaking an error.
const (
	rateLimitedText = "I'm being rate limited right now — please give me a minute and ask again."
	degradedText    = "I'm having trouble reaching my language model at the moment. The team has been notified; please try again later."
	apologyText     = "Sorry, I couldn't come up with an answer just now. Please try asking again in a moment."

	escalationNoticeText = "\n\n*I've flagged this conversation for the team — a human will follow up shortly.*"
)
