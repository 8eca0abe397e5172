// Package domain contains the core business entities, value objects, and
// domain logic of the application: the Question produced by content
// generation and the learning modes that consume it. The matching game and
// flashcard deck state machines live in the match and flashcard subpackages.
// It is independent of any specific infrastructure or delivery mechanism.
package domain
