package nlp

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// RuleSplitter splits on sentence terminators followed by whitespace and on blank lines.
// Returned sentences are verbatim substrings of the input with surrounding whitespace removed.
type RuleSplitter struct {
	abbreviations map[string]bool
}

// NewRuleSplitter creates a splitter with a small English abbreviation list
func NewRuleSplitter() *RuleSplitter {
	abbrevs := []string{
		"mr", "mrs", "ms", "dr", "prof", "st", "jr", "sr", "vs", "etc",
		"e.g", "i.e", "inc", "ltd", "co", "no", "fig", "approx", "dept",
	}
	s := &RuleSplitter{abbreviations: make(map[string]bool, len(abbrevs))}
	for _, a := range abbrevs {
		s.abbreviations[a] = true
	}
	return s
}

// Split returns the sentences of text in order
func (s *RuleSplitter) Split(text string) ([]string, error) {
	var sentences []string
	start := -1

	emit := func(end int) {
		sent := strings.TrimRightFunc(text[start:end], unicode.IsSpace)
		if sent != "" {
			sentences = append(sentences, sent)
		}
		start = -1
	}

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])

		if start < 0 {
			if !unicode.IsSpace(r) {
				start = i
			}
			i += size
			continue
		}

		// Blank line ends a sentence even without a terminator
		if r == '\n' && isBlankLineAhead(text[i+size:]) {
			emit(i)
			i += size
			continue
		}

		if isTerminator(r) {
			end := i + size
			for end < len(text) {
				r2, s2 := utf8.DecodeRuneInString(text[end:])
				if !isTerminator(r2) && !isCloser(r2) {
					break
				}
				end += s2
			}

			atBoundary := end == len(text)
			if !atBoundary {
				next, _ := utf8.DecodeRuneInString(text[end:])
				atBoundary = unicode.IsSpace(next)
			}

			if atBoundary && !(r == '.' && end == i+size && s.isAbbreviation(text[start:i])) {
				emit(end)
			}
			i = end
			continue
		}

		i += size
	}

	if start >= 0 {
		emit(len(text))
	}

	return sentences, nil
}

// isAbbreviation checks the word right before a period
func (s *RuleSplitter) isAbbreviation(prefix string) bool {
	word := prefix
	if idx := strings.LastIndexFunc(prefix, unicode.IsSpace); idx >= 0 {
		word = prefix[idx+1:]
	}
	word = strings.TrimLeft(word, "(\"'")
	if word == "" {
		return false
	}

	// Single capital letter initial, e.g. "J. Smith"
	if r, size := utf8.DecodeRuneInString(word); size == len(word) && unicode.IsUpper(r) {
		return true
	}

	return s.abbreviations[strings.ToLower(word)]
}

func isBlankLineAhead(rest string) bool {
	for _, r := range rest {
		if r == '\n' {
			return true
		}
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return false
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}
