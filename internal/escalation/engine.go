// Package escalation decides if and how a turn should be handed off to human
// operators. Rules live in an explicit priority-ordered table; the first rule
// whose predicate matches wins, so precedence is testable on its own.
package escalation

import (
	"regexp"

	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/cxlinux-ai/supportbot/internal/sentiment"
)

// Action tells the orchestrator what the handoff looks like
type Action string

const (
	ActionNone         Action = "none"
	ActionNotifyOnCall Action = "notify_on_call"
	ActionOpenTicket   Action = "open_ticket"
	ActionFlagChannel  Action = "flag_channel"
)

// Decision is the evaluated escalation outcome for one turn
type Decision struct {
	ShouldEscalate bool
	Reason         string
	Priority       domain.EscalationPriority
	Action         Action
}

// Input bundles the accumulated signals a rule may inspect
type Input struct {
	Question  string
	Session   *domain.ConversationSession
	Sentiment sentiment.Result
}

type rule struct {
	name     string
	priority domain.EscalationPriority
	action   Action
	matches  func(in Input) bool
}

// Engine evaluates the ordered rule table
type Engine struct {
	rules []rule
	// LengthThreshold is the turn count at which a long conversation
	// escalates on its own. Tunable; long healthy conversations trip it too.
	lengthThreshold int
}

var (
	urgentPattern  = regexp.MustCompile(`(?i)\b(urgent|emergency|asap|outage|(server|site|service|everything).{0,20}\bdown\b|hacked|breach|security (hole|issue|incident)|exploit|data loss)\b`)
	humanPattern   = regexp.MustCompile(`(?i)\b(real (person|human)|speak (to|with) (a |an )?(human|person|agent|someone)|talk to (a |an )?(human|person|agent|staff)|human support|contact (the )?(team|staff|support team))\b`)
	billingPattern = regexp.MustCompile(`(?i)\b(refund|charge[ds]?|billing|payment|paid|invoice|subscription|money|chargeback|double.?charged)\b`)
)

// NewEngine builds the engine with its default rule ordering
func NewEngine(lengthThreshold int) *Engine {
	if lengthThreshold <= 0 {
		lengthThreshold = 8
	}

	e := &Engine{lengthThreshold: lengthThreshold}
	e.rules = []rule{
		{
			name:     "urgent_language",
			priority: domain.PriorityUrgent,
			action:   ActionNotifyOnCall,
			matches: func(in Input) bool {
				return urgentPattern.MatchString(in.Question)
			},
		},
		{
			name:     "human_requested",
			priority: domain.PriorityMedium,
			action:   ActionOpenTicket,
			matches: func(in Input) bool {
				return humanPattern.MatchString(in.Question)
			},
		},
		{
			name:     "billing_issue",
			priority: domain.PriorityHigh,
			action:   ActionOpenTicket,
			matches: func(in Input) bool {
				return billingPattern.MatchString(in.Question)
			},
		},
		{
			name:     "user_frustrated",
			priority: domain.PriorityMedium,
			action:   ActionFlagChannel,
			matches: func(in Input) bool {
				return in.Sentiment.ShouldEscalate
			},
		},
		{
			name:     "long_conversation",
			priority: domain.PriorityLow,
			action:   ActionFlagChannel,
			matches: func(in Input) bool {
				return in.Session != nil && in.Session.MessageCount >= e.lengthThreshold
			},
		},
	}
	return e
}

// Evaluate runs the rule table top to bottom; the first match wins.
func (e *Engine) Evaluate(question string, session *domain.ConversationSession, sent sentiment.Result) Decision {
	in := Input{Question: question, Session: session, Sentiment: sent}

	for _, r := range e.rules {
		if r.matches(in) {
			return Decision{
				ShouldEscalate: true,
				Reason:         r.name,
				Priority:       r.priority,
				Action:         r.action,
			}
		}
	}

	return Decision{ShouldEscalate: false, Action: ActionNone}
}
