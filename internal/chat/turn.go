// Package chat defines the conversation data model shared across the bot.
//
// A conversation is an ordered, append-only sequence of turns per session.
// Stored histories written by earlier deployments used loose map shapes;
// conversion from those shapes happens at the history store boundary so
// the rest of the code only ever sees Turn values.
package chat

import (
	"fmt"
	"strings"
)

// Role identifies the author of a turn.
type Role string

const (
	// RoleUser marks a turn written by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a turn written by the bot.
	RoleAssistant Role = "assistant"
)

// NoPreviousTurns is the rendered placeholder for an empty recent-turn window.
const NoPreviousTurns = "No previous turns."

// Turn is a single conversation entry.
//
// RawResponse preserves the unstripped model output (including the
// final-answer label) for assistant turns; Content holds the text that
// was actually shown to the user.
type Turn struct {
	Role        Role   `json:"role"`
	Content     string `json:"content"`
	RawResponse string `json:"raw_response,omitempty"`
}

// label returns the capitalized role name used when rendering turns.
func (t Turn) label() string {
	switch t.Role {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	default:
		if t.Role == "" {
			return "Assistant"
		}
		return strings.ToUpper(string(t.Role[0])) + string(t.Role[1:])
	}
}

// FormatTurns renders the last max turns as "<Role>: <content>" lines.
// Turns with empty content are skipped. Returns NoPreviousTurns when
// nothing renders.
func FormatTurns(turns []Turn, max int) string {
	if len(turns) == 0 || max <= 0 {
		return NoPreviousTurns
	}
	if len(turns) > max {
		turns = turns[len(turns)-max:]
	}

	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		if t.Content == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", t.label(), t.Content))
	}
	if len(lines) == 0 {
		return NoPreviousTurns
	}
	return strings.Join(lines, "\n")
}
