package domain

import "strings"

const (
	// MaxTaskLength is the per-task limit of the delivery platform, in runes,
	// measured after trimming.
	MaxTaskLength = 100

	// MinTasks is the minimum number of segments a message needs to become pending.
	MinTasks = 2
)

// Trigger symbols confirming checklist creation.
const (
	TriggerMemo             = "\U0001F4DD" // memo (pencil over paper)
	TriggerWritingHand      = "✍️"         // writing hand, emoji presentation
	TriggerWritingHandPlain = "✍"          // writing hand, text presentation
)

var triggers = []string{TriggerMemo, TriggerWritingHand, TriggerWritingHandPlain}

// Triggers returns the recognized trigger symbols.
func Triggers() []string {
	out := make([]string, len(triggers))
	copy(out, triggers)
	return out
}

// IsTrigger reports whether symbol is one of the recognized trigger symbols.
func IsTrigger(symbol string) bool {
	for _, t := range triggers {
		if symbol == t {
			return true
		}
	}
	return false
}

// HasTrigger reports whether any of the symbols is a trigger.
func HasTrigger(symbols []string) bool {
	for _, s := range symbols {
		if IsTrigger(s) {
			return true
		}
	}
	return false
}

// ContainsTrigger reports whether text mentions a trigger symbol anywhere.
// The plain writing hand is a prefix of the emoji variant, so one check covers both.
func ContainsTrigger(text string) bool {
	return strings.Contains(text, TriggerMemo) || strings.Contains(text, TriggerWritingHandPlain)
}
