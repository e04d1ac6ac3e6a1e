package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexiconChunker_Tokens(t *testing.T) {
	sent, err := NewLexiconChunker().Chunk("She swam to Paris.")
	require.NoError(t, err)

	assert.Equal(t, []string{"She", "swam", "to", "Paris", "."}, sent.Tokens)
	assert.Equal(t, []LocalSpan{{0, 3}, {4, 8}, {9, 11}, {12, 17}, {17, 18}}, sent.Offsets)
	assert.Equal(t, []Tag{TagPronoun, TagOpen, TagPreposition, TagProper, TagPunct}, sent.Tags)
	assert.Equal(t, []Range{{0, 0}, {3, 3}}, sent.Chunks)
}

func TestLexiconChunker_Joiners(t *testing.T) {
	sent, err := NewLexiconChunker().Chunk("It's a well-known fact-")
	require.NoError(t, err)
	assert.Equal(t, []string{"It's", "a", "well-known", "fact", "-"}, sent.Tokens)
}

func TestLexiconChunker_LineBreak(t *testing.T) {
	sentence := "Sally is\nhis wife."
	sent, err := NewLexiconChunker().Chunk(sentence)
	require.NoError(t, err)

	assert.Equal(t, sentence, sent.Text)
	require.Len(t, sent.Tokens, 5)
	for i, tok := range sent.Tokens {
		off := sent.Offsets[i]
		assert.Equal(t, tok, sentence[off.Start:off.End])
	}
}

func TestLexiconChunker_Empty(t *testing.T) {
	sent, err := NewLexiconChunker().Chunk("   ")
	require.NoError(t, err)
	assert.Equal(t, 0, sent.Len())
}

func TestLexiconChunker_PossessiveResolution(t *testing.T) {
	sent, err := NewLexiconChunker().Chunk("John hates her. Her dog barks.")
	require.NoError(t, err)
	assert.Equal(t, TagPronoun, sent.Tags[2], "object 'her' before punctuation")
	assert.Equal(t, TagPossessive, sent.Tags[4], "'Her' before a noun")
}

func TestLexiconChunker_DeterminerPhraseStopsAtVerb(t *testing.T) {
	sent, err := NewLexiconChunker().Chunk("The big dog chased the cat")
	require.NoError(t, err)
	assert.Equal(t, []Range{{0, 2}, {4, 5}}, sent.Chunks)
}

func TestChunkedSentence_TextOf(t *testing.T) {
	sent := &ChunkedSentence{Tokens: []string{"is", "married", "to"}}
	assert.Equal(t, "is married to", sent.TextOf(Range{0, 2}))
	assert.Equal(t, "married", sent.TextOf(Range{1, 1}))
	assert.Equal(t, "", sent.TextOf(Range{2, 5}))
}
