// Package match implements the memory-matching game as a pure state machine.
//
// A GameState is a plain serializable value. Every transition (NewGame,
// Select, Resolve, Tick) takes a state and returns a new one without
// modifying its input; timing is left to the caller, which decides when a
// pending pair is resolved and when a clock tick happens.
package match

import (
	"errors"
	"slices"

	"github.com/google/uuid"
	"github.com/phrazzld/pdfstudy-api/internal/domain"
)

// ErrCardNotFound is returned when a card id does not exist in the deck.
var ErrCardNotFound = errors.New("card not found")

// Status is the lifecycle state of a game instance.
type Status string

// Game statuses.
const (
	StatusNotStarted Status = "not_started"
	StatusPlaying    Status = "playing"
	StatusComplete   Status = "complete"
)

// CardType tells which side of a Question a card shows.
type CardType string

// Card types. A question card shows the definition, an answer card the term.
const (
	CardTypeQuestion CardType = "question"
	CardTypeAnswer   CardType = "answer"
)

// Card is one face-up tile of the deck.
type Card struct {
	// ID is the card's position in the shuffled deck.
	ID         int      `json:"id"`
	Content    string   `json:"content"`
	Type       CardType `json:"type"`
	IsSelected bool     `json:"is_selected"`
	IsMatched  bool     `json:"is_matched"`
	// MatchID is the index of the Question both cards of a pair came from.
	MatchID int `json:"match_id"`
}

// GameState is the complete state of one game instance.
type GameState struct {
	// InstanceID changes on every start so that callbacks scheduled for an
	// earlier instance can detect they are stale.
	InstanceID     uuid.UUID `json:"instance_id"`
	Status         Status    `json:"status"`
	Cards          []Card    `json:"cards"`
	Selected       []int     `json:"selected"`
	MatchedPairs   int       `json:"matched_pairs"`
	TotalPairs     int       `json:"total_pairs"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
}

// Pair holds the ids of two selected cards in click order.
type Pair [2]int

// Shuffler permutes n elements using swap. rand.Shuffle satisfies it.
type Shuffler func(n int, swap func(i, j int))

// Outcome describes what a Select did.
type Outcome int

// Select outcomes.
const (
	// OutcomeIgnored: the click had no effect.
	OutcomeIgnored Outcome = iota
	// OutcomeSelected: the card is the first of a new pair.
	OutcomeSelected
	// OutcomePairMatched: the card completed a pair with equal match ids.
	OutcomePairMatched
	// OutcomePairMismatched: the card completed a pair with different match ids.
	OutcomePairMismatched
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSelected:
		return "selected"
	case OutcomePairMatched:
		return "pair_matched"
	case OutcomePairMismatched:
		return "pair_mismatched"
	default:
		return "ignored"
	}
}

// Resolution is the result of resolving a pending pair.
type Resolution struct {
	Pair      Pair
	Matched   bool
	Completed bool
}

// SelectResult reports the effect of a Select.
type SelectResult struct {
	Outcome Outcome
	// Pair is the pending pair when Outcome is OutcomePairMatched or
	// OutcomePairMismatched.
	Pair Pair
	// Interrupted is set when the click arrived while a pair was still
	// pending; that pair was resolved immediately before the click counted.
	Interrupted *Resolution
}

// NewGame builds a started game from questions: one question card (the
// definition) and one answer card (the term) per Question, both carrying the
// Question's index as MatchID, shuffled into a deck whose positions become
// the card ids.
func NewGame(instanceID uuid.UUID, questions []domain.Question, shuffle Shuffler) GameState {
	cards := make([]Card, 0, 2*len(questions))
	for i, q := range questions {
		cards = append(cards,
			Card{Content: q.Definition, Type: CardTypeQuestion, MatchID: i},
			Card{Content: q.Term, Type: CardTypeAnswer, MatchID: i},
		)
	}

	if shuffle != nil {
		shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	}
	for i := range cards {
		cards[i].ID = i
	}

	return GameState{
		InstanceID: instanceID,
		Status:     StatusPlaying,
		Cards:      cards,
		Selected:   []int{},
		TotalPairs: len(questions),
	}
}

// Clone returns a deep copy of s.
func (s GameState) Clone() GameState {
	c := s
	c.Cards = slices.Clone(s.Cards)
	c.Selected = slices.Clone(s.Selected)
	if c.Selected == nil {
		c.Selected = []int{}
	}
	return c
}

// PendingPair returns the two selected cards awaiting resolution, if any.
func (s GameState) PendingPair() (Pair, bool) {
	if len(s.Selected) != 2 {
		return Pair{}, false
	}
	return Pair{s.Selected[0], s.Selected[1]}, true
}

// Select registers a click on cardID.
//
// Clicks are ignored unless the game is playing, and clicks on matched or
// already selected cards are ignored. When a pair is still pending, the
// pending pair is resolved at once (a match is kept, a mismatch is flipped
// back) and the click becomes the only selection. ErrCardNotFound is the
// only error.
func Select(s GameState, cardID int) (GameState, SelectResult, error) {
	if s.Status != StatusPlaying {
		return s, SelectResult{Outcome: OutcomeIgnored}, nil
	}
	if cardID < 0 || cardID >= len(s.Cards) {
		return s, SelectResult{Outcome: OutcomeIgnored}, ErrCardNotFound
	}

	card := s.Cards[cardID]
	if card.IsMatched || card.IsSelected {
		return s, SelectResult{Outcome: OutcomeIgnored}, nil
	}

	next := s.Clone()
	var result SelectResult

	if pair, ok := next.PendingPair(); ok {
		var res Resolution
		next, res, _ = Resolve(next, pair)
		result.Interrupted = &res
		if next.Status != StatusPlaying {
			result.Outcome = OutcomeIgnored
			return next, result, nil
		}
	}

	next.Cards[cardID].IsSelected = true
	next.Selected = append(next.Selected, cardID)

	pair, ok := next.PendingPair()
	if !ok {
		result.Outcome = OutcomeSelected
		return next, result, nil
	}

	result.Pair = pair
	if next.Cards[pair[0]].MatchID == next.Cards[pair[1]].MatchID {
		result.Outcome = OutcomePairMatched
	} else {
		result.Outcome = OutcomePairMismatched
	}
	return next, result, nil
}

// Resolve settles pair if it is still the pending selection of a playing
// game. Matching cards become matched and the matched-pair counter grows by
// one, completing the game when every pair is found; mismatched cards are
// deselected. The boolean is false when there was nothing to resolve.
func Resolve(s GameState, pair Pair) (GameState, Resolution, bool) {
	pending, ok := s.PendingPair()
	if s.Status != StatusPlaying || !ok || pending != pair {
		return s, Resolution{}, false
	}

	next := s.Clone()
	a, b := &next.Cards[pair[0]], &next.Cards[pair[1]]
	res := Resolution{Pair: pair, Matched: a.MatchID == b.MatchID}

	a.IsSelected, b.IsSelected = false, false
	if res.Matched {
		a.IsMatched, b.IsMatched = true, true
		next.MatchedPairs++
		if next.MatchedPairs == next.TotalPairs {
			next.Status = StatusComplete
			res.Completed = true
		}
	}
	next.Selected = []int{}

	return next, res, true
}

// Tick advances the elapsed-seconds counter of a playing game by one.
func Tick(s GameState) (GameState, bool) {
	if s.Status != StatusPlaying {
		return s, false
	}
	next := s.Clone()
	next.ElapsedSeconds++
	return next, true
}
