package domain

import (
	"fmt"
	"strings"
)

// Mode is a learning mode selected by the user.
type Mode string

// Supported learning modes.
const (
	ModeFlashcards Mode = "flashcards"
	ModeQuiz       Mode = "quiz"
	ModeMatch      Mode = "match"
)

// Modes lists every supported mode in display order.
var Modes = []Mode{ModeFlashcards, ModeQuiz, ModeMatch}

// ParseMode converts a case-insensitive mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeFlashcards, ModeQuiz, ModeMatch:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
}

// RequiresChoices reports whether questions generated for the mode must carry
// multiple-choice options and an answer.
func (m Mode) RequiresChoices() bool {
	return m == ModeQuiz
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	return string(m)
}
