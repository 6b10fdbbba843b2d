// Package conversation keeps the short rolling history a session feeds back
// into retrieval and generation.
package conversation

import (
	"strings"

	"ragchat/internal/domain"
)

// DefaultMaxTurns is the history window used when none is configured.
const DefaultMaxTurns = 5

// Tracker holds the most recent turns of one session, oldest first.
type Tracker struct {
	maxTurns int
	turns    []domain.Turn
}

// NewTracker creates a tracker keeping at most maxTurns turns.
func NewTracker(maxTurns int) *Tracker {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Tracker{maxTurns: maxTurns}
}

// Record appends a completed turn and evicts the oldest ones beyond the window.
func (t *Tracker) Record(question, answer string) {
	t.turns = append(t.turns, domain.Turn{Question: question, Answer: answer})
	if over := len(t.turns) - t.maxTurns; over > 0 {
		t.turns = append(t.turns[:0:0], t.turns[over:]...)
	}
}

// RecentHistory returns a copy of the retained turns, oldest first.
func (t *Tracker) RecentHistory() []domain.Turn {
	out := make([]domain.Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Format renders the history as plain text, or "" when there is none.
func (t *Tracker) Format() string {
	if len(t.turns) == 0 {
		return ""
	}
	parts := make([]string, len(t.turns))
	for i, turn := range t.turns {
		parts[i] = "Previous question: " + turn.Question + "\nPrevious answer: " + turn.Answer
	}
	return strings.Join(parts, "\n")
}

func (t *Tracker) Len() int { return len(t.turns) }

func (t *Tracker) MaxTurns() int { return t.maxTurns }

func (t *Tracker) Reset() { t.turns = nil }
