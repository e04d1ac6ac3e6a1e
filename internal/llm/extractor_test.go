package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/relmark/internal/annotate"
	"github.com/ppiankov/relmark/internal/model"
	"github.com/ppiankov/relmark/internal/nlp"
)

// stubProvider returns a fixed reply
type stubProvider struct {
	reply  string
	err    error
	prompt string
}

func (p *stubProvider) Name() string                     { return "stub" }
func (p *stubProvider) IsAvailable(context.Context) bool { return true }

func (p *stubProvider) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	p.prompt = req.Prompt
	if p.err != nil {
		return nil, p.err
	}
	return &CompletionResponse{Text: p.reply}, nil
}

func chunk(t *testing.T, sentence string) *nlp.ChunkedSentence {
	t.Helper()
	sent, err := nlp.NewLexiconChunker().Chunk(sentence)
	require.NoError(t, err)
	return sent
}

func TestExtractor_Extract(t *testing.T) {
	p := &stubProvider{reply: "```json\n{\"relations\":[{\"arg1\":[0,0],\"predicate\":[1,2],\"arg2\":[3,3]}]}\n```"}
	e := NewExtractor(p)

	got, err := e.Extract(context.Background(), chunk(t, "She swam to Paris."))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, nlp.Range{First: 1, Last: 2}, got[0].Predicate)
	assert.Equal(t, "swam to", got[0].PredicateText)
	assert.Equal(t, "stub", e.Name())
	assert.Contains(t, p.prompt, "0: She\n1: swam\n")
}

func TestExtractor_DropsInvalidRanges(t *testing.T) {
	p := &stubProvider{reply: `{"relations":[
		{"arg1":[0,0],"predicate":[1,1],"arg2":[9,9]},
		{"arg1":[3,3],"predicate":[1,1],"arg2":[0,0]},
		{"arg1":[0],"predicate":[1,1],"arg2":[2,2]},
		{"arg1":[0,0],"predicate":[1,1],"arg2":[2,2]}
	]}`}

	got, err := NewExtractor(p).Extract(context.Background(), chunk(t, "Mary loves John."))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "loves", got[0].PredicateText)
}

func TestExtractor_Errors(t *testing.T) {
	_, err := NewExtractor(&stubProvider{err: errors.New("down")}).Extract(context.Background(), chunk(t, "Mary loves John."))
	assert.Error(t, err)

	_, err = NewExtractor(&stubProvider{reply: "no json here"}).Extract(context.Background(), chunk(t, "Mary loves John."))
	assert.Error(t, err)

	got, err := NewExtractor(&stubProvider{err: errors.New("unused")}).Extract(context.Background(), &nlp.ChunkedSentence{})
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtractor_InAnnotator(t *testing.T) {
	p := &stubProvider{reply: `{"relations":[{"arg1":[0,0],"predicate":[1,1],"arg2":[2,2]}]}`}
	doc := model.NewDocument("Mary loves John.", "en")

	stats, err := annotate.New(annotate.WithExtractor(NewExtractor(p))).Annotate(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Relations)

	view := doc.Views()[0]
	c, ok := view.Contains(model.TypeGenericRelation)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(c.Type, "stub"), c.Type)
}

func TestParseRelations(t *testing.T) {
	rels, err := ParseRelations(`Here you go: {"relations":[]} thanks`)
	require.NoError(t, err)
	assert.Empty(t, rels)

	_, err = ParseRelations(`{"relations": [}`)
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	assert.NoError(t, err)
	assert.Nil(t, p)

	_, err = NewProvider(Config{Provider: "anthropic"})
	assert.Error(t, err)

	p, err = NewProvider(Config{Provider: "OpenAI", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = NewExtractorFromConfig(Config{})
	assert.ErrorIs(t, err, nlp.ErrMissingModelResource)

	_, err = NewExtractorFromConfig(Config{Provider: "openai"})
	assert.ErrorIs(t, err, nlp.ErrMissingModelResource)

	e, err := NewExtractorFromConfig(Config{Provider: "ollama", Model: "llama3.1"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", e.Name())
}

func TestConfigFromModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	cfg.HTTP.HTTPProxy = "http://proxy:3128"

	c := ConfigFromModel(cfg.LLM, cfg.HTTP)
	assert.Equal(t, "ollama", c.Provider)
	assert.Equal(t, "gpt-4o-mini", c.Model)
	assert.Equal(t, "http://proxy:3128", c.HTTPProxy)
}
