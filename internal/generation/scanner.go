package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

var errMalformedStream = errors.New("malformed JSON array stream")

// elementScanner splits a streamed JSON array of objects into its elements.
// Bytes are fed in arbitrary chunks; each element is returned as soon as its
// closing brace arrives. Only nesting and string boundaries are tracked, the
// elements themselves are decoded by the caller.
type elementScanner struct {
	open     bool
	done     bool
	depth    int
	inString bool
	escaped  bool
	buf      []byte
}

// Feed consumes p and returns the elements completed by it.
func (s *elementScanner) Feed(p []byte) ([]json.RawMessage, error) {
	var out []json.RawMessage

	for _, c := range p {
		switch {
		case s.done:
			// Trailing bytes are left for the final decode to judge.
			continue

		case !s.open:
			if isSpace(c) {
				continue
			}
			if c != '[' {
				return out, fmt.Errorf("%w: expected '[' but got %q", errMalformedStream, c)
			}
			s.open = true

		case s.depth == 0:
			switch {
			case isSpace(c) || c == ',':
			case c == ']':
				s.done = true
			case c == '{':
				s.depth = 1
				s.buf = append(s.buf[:0], c)
			default:
				return out, fmt.Errorf("%w: array element must be an object, got %q", errMalformedStream, c)
			}

		default:
			s.buf = append(s.buf, c)
			if s.inString {
				switch {
				case s.escaped:
					s.escaped = false
				case c == '\\':
					s.escaped = true
				case c == '"':
					s.inString = false
				}
				continue
			}

			switch c {
			case '"':
				s.inString = true
			case '{', '[':
				s.depth++
			case '}', ']':
				s.depth--
				if s.depth == 0 {
					out = append(out, json.RawMessage(slices.Clone(s.buf)))
					s.buf = s.buf[:0]
				}
			}
		}
	}

	return out, nil
}

// Complete reports whether the closing bracket of the array has been seen.
func (s *elementScanner) Complete() bool {
	return s.done
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
