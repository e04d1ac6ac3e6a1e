// Package nlp defines the contracts of the external language processing
// collaborators and ships simple rule-based implementations of each.
package nlp

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingModelResource is returned when a collaborator cannot be initialized
var ErrMissingModelResource = errors.New("missing model resource")

// MissingResourceError names the collaborator that failed to initialize
type MissingResourceError struct {
	Component string
	Err       error
}

func (e *MissingResourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Component, ErrMissingModelResource, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Component, ErrMissingModelResource)
}

// Is matches ErrMissingModelResource
func (e *MissingResourceError) Is(target error) bool {
	return target == ErrMissingModelResource
}

func (e *MissingResourceError) Unwrap() error {
	return e.Err
}

// SentenceSplitter returns the sentences of a text, left to right, as verbatim substrings
type SentenceSplitter interface {
	Split(text string) ([]string, error)
}

// Chunker tokenizes and chunks one sentence
type Chunker interface {
	Chunk(sentence string) (*ChunkedSentence, error)
}

// RelationExtractor finds binary relations in a chunked sentence
type RelationExtractor interface {
	Name() string
	Extract(ctx context.Context, sent *ChunkedSentence) ([]Extraction, error)
}

// LocalSpan is a [Start, End) byte range into the sentence string given to the chunker
type LocalSpan struct {
	Start int
	End   int
}

// ChunkedSentence is the chunker output. Tags and Chunks are only read by extractors.
type ChunkedSentence struct {
	Text    string
	Tokens  []string
	Offsets []LocalSpan
	Tags    []Tag
	Chunks  []Range // noun phrase chunks
}

// Len returns the number of tokens
func (s *ChunkedSentence) Len() int {
	return len(s.Tokens)
}

// Range is an inclusive token index range
type Range struct {
	First int
	Last  int
}

// Len returns the number of tokens covered
func (r Range) Len() int {
	return r.Last - r.First + 1
}

// Valid reports whether the range lies within a sentence of n tokens
func (r Range) Valid(n int) bool {
	return r.First >= 0 && r.Last >= r.First && r.Last < n
}

// Extraction is one binary relation candidate
type Extraction struct {
	Predicate     Range
	Arg1          Range
	Arg2          Range
	PredicateText string
}

// TextOf joins the tokens of a range with single spaces
func (s *ChunkedSentence) TextOf(r Range) string {
	if !r.Valid(len(s.Tokens)) {
		return ""
	}
	out := s.Tokens[r.First]
	for _, tok := range s.Tokens[r.First+1 : r.Last+1] {
		out += " " + tok
	}
	return out
}
