package model

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// MaxHistory is the number of turns kept for prompt context.
const MaxHistory = 10

// History is an append-only list of chat turns that keeps only the most
// recent MaxHistory entries.
type History struct {
	turns []ChatTurn
}

// Append adds turns in order, evicting the oldest past MaxHistory.
func (h *History) Append(turns ...ChatTurn) {
	h.turns = append(h.turns, turns...)
	if n := len(h.turns); n > MaxHistory {
		h.turns = append([]ChatTurn(nil), h.turns[n-MaxHistory:]...)
	}
}

func (h *History) Len() int {
	return len(h.turns)
}

// Turns returns a copy of the retained turns, oldest first.
func (h *History) Turns() []ChatTurn {
	return append([]ChatTurn(nil), h.turns...)
}

// FormatHistory renders turns as "ROLE: content" lines for prompts.
func FormatHistory(turns []ChatTurn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(string(t.Role)), t.Content))
	}
	return strings.Join(lines, "\n")
}
