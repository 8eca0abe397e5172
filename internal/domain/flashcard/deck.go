// Package flashcard provides navigation over a generated set of study cards.
package flashcard

import (
	"errors"
	"slices"

	"github.com/phrazzld/pdfstudy-api/internal/domain"
)

// ErrEmptyDeck is returned when a deck is created without questions.
var ErrEmptyDeck = errors.New("flashcard deck requires at least one question")

// Deck walks through questions one card at a time. The front of a card
// shows the term and the back the definition.
type Deck struct {
	questions []domain.Question
	index     int
	flipped   bool
}

// NewDeck creates a deck positioned on the first card, front side up.
func NewDeck(questions []domain.Question) (*Deck, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyDeck
	}
	return &Deck{questions: slices.Clone(questions)}, nil
}

// Current returns the card under the cursor.
func (d *Deck) Current() domain.Question {
	return d.questions[d.index]
}

// Index returns the zero-based cursor position.
func (d *Deck) Index() int {
	return d.index
}

// Len returns the number of cards.
func (d *Deck) Len() int {
	return len(d.questions)
}

// Flipped reports whether the back of the current card is showing.
func (d *Deck) Flipped() bool {
	return d.flipped
}

// Flip turns the current card over.
func (d *Deck) Flip() {
	d.flipped = !d.flipped
}

// Next moves to the following card and shows its front. It returns false
// without moving when the cursor is already on the last card.
func (d *Deck) Next() bool {
	if d.index >= len(d.questions)-1 {
		return false
	}
	d.index++
	d.flipped = false
	return true
}

// Previous moves to the preceding card and shows its front. It returns false
// without moving when the cursor is already on the first card.
func (d *Deck) Previous() bool {
	if d.index == 0 {
		return false
	}
	d.index--
	d.flipped = false
	return true
}

// Progress is the share of cards already passed, as a percentage.
func (d *Deck) Progress() float64 {
	return float64(d.index) / float64(len(d.questions)) * 100
}
