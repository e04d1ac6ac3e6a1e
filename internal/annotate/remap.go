package annotate

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/relmark/internal/model"
	"github.com/ppiankov/relmark/internal/nlp"
)

// ErrSentenceAlignment is returned when a sentence cannot be placed in the document text
var ErrSentenceAlignment = errors.New("sentence alignment failure")

// ErrInvalidRange is returned when an extraction refers to tokens the sentence does not have
var ErrInvalidRange = errors.New("token range out of bounds")

// SentenceAlignmentError describes a sentence that could not be mapped to document offsets
type SentenceAlignmentError struct {
	Index    int // 1-based sentence position in splitter order
	Sentence string
	Cursor   int // byte offset the search started from
	Reason   string
}

func (e *SentenceAlignmentError) Error() string {
	s := e.Sentence
	if utf8.RuneCountInString(s) > 40 {
		cut, n := 0, 0
		for i := range s {
			if n == 40 {
				cut = i
				break
			}
			n++
		}
		s = s[:cut] + "..."
	}
	return fmt.Sprintf("sentence %d %q: %s (cursor %d)", e.Index, s, e.Reason, e.Cursor)
}

// Is matches ErrSentenceAlignment
func (e *SentenceAlignmentError) Is(target error) bool {
	return target == ErrSentenceAlignment
}

// Remapper converts sentence-local token offsets to document offsets.
// Sentences are located by exact search from a running cursor, so they
// must be fed in the order the splitter returned them.
type Remapper struct {
	text   string
	cursor int

	// code point offset for every byte offset; nil for ASCII text
	codePoints []int
}

// NewRemapper creates a remapper over the document text
func NewRemapper(text string) *Remapper {
	r := &Remapper{text: text}
	if !isASCII(text) {
		r.codePoints = make([]int, len(text)+1)
		n := 0
		for i := 0; i < len(text); {
			_, size := utf8.DecodeRuneInString(text[i:])
			for k := 0; k < size; k++ {
				r.codePoints[i+k] = n
			}
			i += size
			n++
		}
		r.codePoints[len(text)] = n
	}
	return r
}

// Cursor returns the byte offset the next search starts from
func (r *Remapper) Cursor() int {
	return r.cursor
}

// Locate finds sentence at or after the cursor and moves the cursor to it.
// The returned offset is in bytes.
func (r *Remapper) Locate(index int, sentence string) (int, error) {
	idx := strings.Index(r.text[r.cursor:], sentence)
	if idx < 0 {
		return 0, &SentenceAlignmentError{
			Index:    index,
			Sentence: sentence,
			Cursor:   r.cursor,
			Reason:   "not found at or after cursor",
		}
	}
	r.cursor += idx
	return r.cursor, nil
}

// Advance moves the cursor past a processed sentence
func (r *Remapper) Advance(n int) {
	r.cursor = min(r.cursor+n, len(r.text))
}

// TokenSpans shifts chunker offsets by the sentence offset and converts them to
// code point spans. Local spans must be ordered, non-overlapping and inside the sentence.
func (r *Remapper) TokenSpans(index, sentenceOffset int, sentence string, local []nlp.LocalSpan) ([]model.Span, error) {
	spans := make([]model.Span, len(local))
	prevEnd := 0

	for i, ls := range local {
		if ls.Start < prevEnd || ls.End < ls.Start || ls.End > len(sentence) {
			return nil, &SentenceAlignmentError{
				Index:    index,
				Sentence: sentence,
				Cursor:   sentenceOffset,
				Reason:   fmt.Sprintf("token %d has bad local span [%d, %d)", i+1, ls.Start, ls.End),
			}
		}
		start, end := sentenceOffset+ls.Start, sentenceOffset+ls.End
		if !r.runeBoundary(start) || !r.runeBoundary(end) {
			return nil, &SentenceAlignmentError{
				Index:    index,
				Sentence: sentence,
				Cursor:   sentenceOffset,
				Reason:   fmt.Sprintf("token %d splits a character", i+1),
			}
		}
		spans[i] = model.Span{Start: r.codePoint(start), End: r.codePoint(end)}
		prevEnd = ls.End
	}

	return spans, nil
}

// codePoint converts a byte offset into the text to a code point offset
func (r *Remapper) codePoint(b int) int {
	if r.codePoints == nil {
		return b
	}
	return r.codePoints[b]
}

func (r *Remapper) runeBoundary(b int) bool {
	return b == len(r.text) || utf8.RuneStart(r.text[b])
}

// MarkableSpan is the union of the first and last token spans of an inclusive token range
func MarkableSpan(tokenSpans []model.Span, rg nlp.Range) (model.Span, error) {
	if !rg.Valid(len(tokenSpans)) {
		return model.Span{}, fmt.Errorf("%w: [%d, %d] over %d tokens", ErrInvalidRange, rg.First, rg.Last, len(tokenSpans))
	}
	return tokenSpans[rg.First].Union(tokenSpans[rg.Last]), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
