package gemini

import (
	"github.com/phrazzld/pdfstudy-api/internal/generation"
	"google.golang.org/genai"
)

// toGenaiSchema translates a provider-neutral schema into the genai representation.
//
// Parameters:
//   - s: The schema to translate; nil yields nil
//
// Returns:
//   - The equivalent genai.Schema tree
func toGenaiSchema(s *generation.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Type:             toGenaiType(s.Type),
		Description:      s.Description,
		Required:         s.Required,
		Enum:             s.Enum,
		MinItems:         s.MinItems,
		MaxItems:         s.MaxItems,
		PropertyOrdering: s.PropertyOrdering,
		Items:            toGenaiSchema(s.Items),
	}

	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}

	return out
}

func toGenaiType(t generation.Type) genai.Type {
	switch t {
	case generation.TypeString:
		return genai.TypeString
	case generation.TypeObject:
		return genai.TypeObject
	case generation.TypeArray:
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}
