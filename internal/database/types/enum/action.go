package enum

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAction is returned when an action name cannot be parsed.
var ErrUnknownAction = errors.New("unknown action")

// ActionKind is the moderation action applied once a warning threshold is reached.
type ActionKind string

const (
	ActionWarn    ActionKind = "warn"
	ActionMute    ActionKind = "mute"
	ActionKick    ActionKind = "kick"
	ActionBan     ActionKind = "ban"
	ActionSoftban ActionKind = "softban"
)

// ParseActionKind converts a case-insensitive action name.
func ParseActionKind(s string) (ActionKind, error) {
	switch a := ActionKind(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionWarn, ActionMute, ActionKick, ActionBan, ActionSoftban:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// Verb returns the past-tense phrase used in user notices.
func (a ActionKind) Verb() string {
	switch a {
	case ActionWarn:
		return "warned"
	case ActionMute:
		return "timed out"
	case ActionKick:
		return "kicked"
	case ActionBan:
		return "banned"
	case ActionSoftban:
		return "softbanned"
	default:
		return string(a)
	}
}

// Title returns the capitalized action name.
func (a ActionKind) Title() string {
	if a == "" {
		return ""
	}

	return strings.ToUpper(string(a[:1])) + string(a[1:])
}

// IsRemoval reports whether the action removes the member from the guild.
func (a ActionKind) IsRemoval() bool {
	return a == ActionKick || a == ActionBan
}
