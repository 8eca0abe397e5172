package generation

import (
	"fmt"

	"github.com/phrazzld/pdfstudy-api/internal/domain"
)

const (
	quizInstruction = "Create multiple choice questions based on the content"

	pairInstruction = "Create question-answer pairs from the content. " +
		"Each question should be a complete sentence asking about a concept, " +
		"and the answer should be concise and direct. " +
		"For example, Q: 'What are the three core relationships that form the core of a firm's business environment?' " +
		"A: 'Customers, suppliers, and competitors.'"

	// UserPrompt accompanies the document in every request.
	UserPrompt = "Process this document and generate learning content."
)

// SystemInstruction returns the instruction template for mode. Flashcards and
// match share the question-answer template.
func SystemInstruction(mode domain.Mode) (string, error) {
	switch mode {
	case domain.ModeQuiz:
		return quizInstruction, nil
	case domain.ModeFlashcards, domain.ModeMatch:
		return pairInstruction, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
	}
}
