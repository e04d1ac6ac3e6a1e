package model

import (
	"errors"
	"fmt"
)

// ErrInvalidSpan is returned when a span has a negative start or ends before it starts
var ErrInvalidSpan = errors.New("invalid span")

// Span is a half-open [Start, End) range of Unicode code point offsets into a document text
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewSpan creates a span, rejecting ranges that violate 0 <= start <= end
func NewSpan(start, end int) (Span, error) {
	s := Span{Start: start, End: end}
	if !s.Valid() {
		return Span{}, fmt.Errorf("%w: [%d, %d)", ErrInvalidSpan, start, end)
	}
	return s, nil
}

// Valid reports whether the span is well formed
func (s Span) Valid() bool {
	return s.Start >= 0 && s.End >= s.Start
}

// Len returns the number of code points covered
func (s Span) Len() int {
	return s.End - s.Start
}

// Empty reports whether the span covers nothing
func (s Span) Empty() bool {
	return s.End == s.Start
}

// Contains reports whether other lies entirely within s
func (s Span) Contains(other Span) bool {
	return s.Start <= other.Start && other.End <= s.End
}

// Overlaps reports whether the two spans share at least one code point
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

// Before orders spans by start offset, then by end offset
func (s Span) Before(other Span) bool {
	if s.Start != other.Start {
		return s.Start < other.Start
	}
	return s.End < other.End
}

// Union returns the smallest span covering both spans
func (s Span) Union(other Span) Span {
	return Span{Start: min(s.Start, other.Start), End: max(s.End, other.End)}
}

// Shift moves the span by offset code points
func (s Span) Shift(offset int) Span {
	return Span{Start: s.Start + offset, End: s.End + offset}
}

func (s Span) String() string {
	return fmt.Sprintf("[%d, %d)", s.Start, s.End)
}
