package nlp

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// LexiconChunker tokenizes on whitespace and punctuation, tags tokens from a
// closed-class lexicon and groups noun phrases.
type LexiconChunker struct{}

// NewLexiconChunker creates a chunker
func NewLexiconChunker() *LexiconChunker {
	return &LexiconChunker{}
}

// Chunk tokenizes, tags and chunks a sentence. Offsets are byte ranges into sentence.
// Line breaks are treated as ordinary spaces so a sentence that wraps is still chunked.
func (c *LexiconChunker) Chunk(sentence string) (*ChunkedSentence, error) {
	text := strings.ReplaceAll(sentence, "\n", " ")

	tokens, offsets := tokenize(text)
	tags := tag(tokens)

	return &ChunkedSentence{
		Text:    sentence,
		Tokens:  tokens,
		Offsets: offsets,
		Tags:    tags,
		Chunks:  chunkNounPhrases(tags),
	}, nil
}

// tokenize splits text into word tokens (letters and digits with inner
// apostrophes or hyphens) and single-rune punctuation tokens
func tokenize(text string) ([]string, []LocalSpan) {
	var tokens []string
	var offsets []LocalSpan

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])

		switch {
		case unicode.IsSpace(r):
			i += size

		case isWordRune(r):
			j := i + size
			for j < len(text) {
				r2, s2 := utf8.DecodeRuneInString(text[j:])
				if isWordRune(r2) {
					j += s2
					continue
				}
				if isJoiner(r2) && j+s2 < len(text) {
					r3, _ := utf8.DecodeRuneInString(text[j+s2:])
					if isWordRune(r3) {
						j += s2
						continue
					}
				}
				break
			}
			tokens = append(tokens, text[i:j])
			offsets = append(offsets, LocalSpan{Start: i, End: j})
			i = j

		default:
			tokens = append(tokens, text[i:i+size])
			offsets = append(offsets, LocalSpan{Start: i, End: i + size})
			i += size
		}
	}

	return tokens, offsets
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isJoiner(r rune) bool {
	return r == '\'' || r == '-' || r == '’'
}

func tag(tokens []string) []Tag {
	tags := make([]Tag, len(tokens))
	for i, tok := range tokens {
		first, _ := utf8.DecodeRuneInString(tok)
		lower := strings.ToLower(tok)

		switch {
		case !isWordRune(first):
			tags[i] = TagPunct
		case unicode.IsDigit(first):
			tags[i] = TagNumber
		default:
			if t, ok := closedClass[lower]; ok {
				tags[i] = t
			} else if unicode.IsUpper(first) {
				tags[i] = TagProper
			} else if len(lower) > 3 && strings.HasSuffix(lower, "ly") {
				tags[i] = TagAdverb
			} else {
				tags[i] = TagOpen
			}
		}
	}

	// A possessive with no noun after it is an object pronoun ("John hates her.")
	for i, t := range tags {
		if t != TagPossessive {
			continue
		}
		if i+1 >= len(tags) || !nominal(tags[i+1]) {
			tags[i] = TagPronoun
		}
	}

	return tags
}

// chunkNounPhrases groups pronouns, determiner/possessive phrases, proper name runs and numbers
func chunkNounPhrases(tags []Tag) []Range {
	var chunks []Range

	for i := 0; i < len(tags); {
		switch tags[i] {
		case TagPronoun:
			chunks = append(chunks, Range{First: i, Last: i})
			i++

		case TagDeterminer, TagPossessive:
			last := i
			for j := i + 1; j < len(tags) && nominal(tags[j]); j++ {
				// An open word followed by the start of another phrase is likely the verb
				if j > i+1 && tags[j] == TagOpen && j+1 < len(tags) && startsPhrase(tags[j+1]) {
					break
				}
				last = j
			}
			chunks = append(chunks, Range{First: i, Last: last})
			i = last + 1

		case TagProper, TagNumber:
			last := i
			for j := i + 1; j < len(tags) && (tags[j] == TagProper || tags[j] == TagNumber); j++ {
				last = j
			}
			chunks = append(chunks, Range{First: i, Last: last})
			i = last + 1

		default:
			i++
		}
	}

	return chunks
}

func startsPhrase(t Tag) bool {
	switch t {
	case TagDeterminer, TagPossessive, TagPronoun, TagProper, TagPreposition, TagNumber:
		return true
	}
	return false
}
