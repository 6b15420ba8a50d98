// Package terminal implements the StoryAI terminal command core.
//
// A Session owns everything a single terminal needs: the scrollback, the raw
// input buffer, the command history and the single-flight processing guard.
// Presentation layers (the bubbletea TUI, the websocket bridge) never touch
// that state directly; they submit lines, move through history and read
// snapshots back out.
package terminal

import "time"

// Kind classifies a rendered line.
type Kind string

const (
	KindInput   Kind = "input"
	KindOutput  Kind = "output"
	KindError   Kind = "error"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Valid reports whether k is one of the known line kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindInput, KindOutput, KindError, KindSuccess, KindWarning, KindInfo:
		return true
	}
	return false
}

// Line is one rendered scrollback entry. Lines are never mutated after they
// are appended.
type Line struct {
	Content   string    `json:"content"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Animated  bool      `json:"animated,omitempty"`
}

// PromptPrefix is prepended to echoed input and boot messages.
const PromptPrefix = "> "
