package annotate

import (
	"github.com/ppiankov/relmark/internal/ident"
	"github.com/ppiankov/relmark/internal/model"
)

// sentenceContext is the per-sentence state: index, offset, id counters and token table
type sentenceContext struct {
	index  int // 1-based
	offset int // byte offset of the sentence in the document text

	tokens    ident.Counter
	markables ident.Counter
	relations ident.Counter

	tokenIDs   []string
	tokenSpans []model.Span
}

func newSentenceContext(index, offset int) *sentenceContext {
	return &sentenceContext{index: index, offset: offset}
}

func (c *sentenceContext) nextTokenID() string {
	return ident.Make(ident.PrefixToken, c.index, c.tokens.Next())
}

func (c *sentenceContext) nextMarkableID() string {
	return ident.Make(ident.PrefixMarkable, c.index, c.markables.Next())
}

func (c *sentenceContext) nextRelationID() string {
	return ident.Make(ident.PrefixRelation, c.index, c.relations.Next())
}
