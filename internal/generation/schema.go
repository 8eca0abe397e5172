package generation

import "github.com/phrazzld/pdfstudy-api/internal/domain"

// Type is a JSON schema type understood by every provider.
type Type string

// Schema types.
const (
	TypeString Type = "string"
	TypeObject Type = "object"
	TypeArray  Type = "array"
)

// Schema is a provider-neutral subset of JSON Schema. Providers translate it
// into their own representation.
type Schema struct {
	Type        Type
	Description string
	Properties  map[string]*Schema
	// PropertyOrdering keeps object keys in a stable order for providers
	// that generate fields sequentially.
	PropertyOrdering []string
	Required         []string
	Items            *Schema
	Enum             []string
	MinItems         *int64
	MaxItems         *int64
}

func int64Ptr(v int64) *int64 {
	return &v
}

// QuestionSchema describes a single domain.Question.
func QuestionSchema() *Schema {
	answers := make([]string, len(domain.Answers))
	for i, a := range domain.Answers {
		answers[i] = string(a)
	}

	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"term":       {Type: TypeString},
			"definition": {Type: TypeString},
			"options": {
				Type:        TypeArray,
				Description: "Multiple choice options for quiz mode",
				Items:       &Schema{Type: TypeString},
				MinItems:    int64Ptr(domain.OptionCount),
				MaxItems:    int64Ptr(domain.OptionCount),
			},
			"answer": {
				Type:        TypeString,
				Description: "Correct answer for quiz mode",
				Enum:        answers,
			},
		},
		PropertyOrdering: []string{"term", "definition", "options", "answer"},
		Required:         []string{"term", "definition"},
	}
}

// QuestionArraySchema describes a complete generation result.
func QuestionArraySchema() *Schema {
	return &Schema{
		Type:     TypeArray,
		Items:    QuestionSchema(),
		MinItems: int64Ptr(domain.MinQuestions),
	}
}
