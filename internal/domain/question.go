package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MinQuestions is the smallest question set a generation result may contain.
const MinQuestions = 4

// OptionCount is the number of multiple-choice options on a quiz question.
const OptionCount = 4

// Answer identifies the correct option of a quiz question.
type Answer string

// Valid answers, in option order.
const (
	AnswerA Answer = "A"
	AnswerB Answer = "B"
	AnswerC Answer = "C"
	AnswerD Answer = "D"
)

// Answers lists the valid answers in option order.
var Answers = []Answer{AnswerA, AnswerB, AnswerC, AnswerD}

// Question is the unit of generated study content. Term is the short label
// shown first on a flashcard, Definition the explanatory text on the other
// side. Options and Answer are only present in quiz mode.
type Question struct {
	Term       string   `json:"term"              validate:"required"`
	Definition string   `json:"definition"        validate:"required"`
	Options    []string `json:"options,omitempty" validate:"omitempty,len=4"`
	Answer     Answer   `json:"answer,omitempty"  validate:"omitempty,oneof=A B C D"`
}

var validate = validator.New()

// Validate checks the Question against the schema. Options and Answer are
// optional here; ValidateQuestions enforces them for quiz mode.
func (q Question) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, describeValidationError(err))
	}
	return nil
}

// HasChoices reports whether the question carries options and an answer.
func (q Question) HasChoices() bool {
	return len(q.Options) == OptionCount && q.Answer != ""
}

// CorrectOption returns the text of the option named by Answer.
func (q Question) CorrectOption() (string, bool) {
	for i, a := range Answers {
		if a == q.Answer && i < len(q.Options) {
			return q.Options[i], true
		}
	}
	return "", false
}

// ValidateQuestions validates a complete question set for the given mode:
// at least MinQuestions entries, every entry schema-conformant, and in quiz
// mode every entry carrying options and an answer. All problems are reported
// in a single error wrapping ErrValidation.
func ValidateQuestions(questions []Question, mode Mode) error {
	var problems []string

	if len(questions) < MinQuestions {
		problems = append(problems, fmt.Sprintf("%v: got %d, need at least %d",
			ErrTooFewQuestions, len(questions), MinQuestions))
	}

	for i, q := range questions {
		if err := validate.Struct(q); err != nil {
			problems = append(problems, fmt.Sprintf("questions[%d]: %s", i, describeValidationError(err)))
			continue
		}
		if mode.RequiresChoices() && !q.HasChoices() {
			problems = append(problems, fmt.Sprintf("questions[%d]: %v", i, ErrMissingChoices))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// describeValidationError flattens validator errors into "field: rule" pairs.
func describeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, ", ")
}
