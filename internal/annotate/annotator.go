// Package annotate assembles token, markable and relation annotations over a document.
//
// Sentences are processed strictly in splitter order. That order fixes the
// sentence indices and therefore every generated identifier.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ppiankov/relmark/internal/model"
	"github.com/ppiankov/relmark/internal/nlp"
)

// Annotator runs the collaborators over a document and records the results in a new view
type Annotator struct {
	splitter  nlp.SentenceSplitter
	chunker   nlp.Chunker
	extractor nlp.RelationExtractor
	builder   *GraphBuilder
	producer  string
	logger    *slog.Logger
}

// Option configures an Annotator
type Option func(*Annotator)

// WithSplitter sets the sentence splitter
func WithSplitter(s nlp.SentenceSplitter) Option {
	return func(a *Annotator) { a.splitter = s }
}

// WithChunker sets the tokenizer/chunker
func WithChunker(c nlp.Chunker) Option {
	return func(a *Annotator) { a.chunker = c }
}

// WithExtractor sets the relation extractor
func WithExtractor(e nlp.RelationExtractor) Option {
	return func(a *Annotator) { a.extractor = e }
}

// WithPolicy sets the relation encoding policy
func WithPolicy(p Policy) Option {
	return func(a *Annotator) { a.builder = NewGraphBuilder(p) }
}

// WithProducer sets the "<name>:<version>" provenance string
func WithProducer(producer string) Option {
	return func(a *Annotator) { a.producer = producer }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(a *Annotator) { a.logger = l }
}

// New creates an annotator. Unset collaborators default to the rule-based ones in nlp.
func New(opts ...Option) *Annotator {
	a := &Annotator{
		splitter:  nlp.NewRuleSplitter(),
		chunker:   nlp.NewLexiconChunker(),
		extractor: nlp.NewPatternExtractor(),
		builder:   NewGraphBuilder(DefaultPolicy()),
		producer:  model.DefaultConfig().Producer.Identity(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Stats summarizes one run
type Stats struct {
	Sentences int // sentences annotated
	Skipped   int // sentences skipped for alignment failures or zero tokens
	Tokens    int
	Markables int
	Relations int
}

// Annotate adds one view with tokens, markables and relations to doc.
// Empty text produces no view. Sentences that cannot be aligned are skipped;
// any other failure aborts and leaves the caller to discard doc.
func (a *Annotator) Annotate(ctx context.Context, doc *model.Document) (Stats, error) {
	var stats Stats

	text := doc.Text()
	if text == "" {
		return stats, nil
	}

	sentences, err := a.splitter.Split(text)
	if err != nil {
		return stats, fmt.Errorf("split sentences: %w", err)
	}

	view := doc.NewView()
	name := a.extractor.Name()
	view.AddContains(model.TypeToken, a.producer, "tokenization:"+name)

	remapper := NewRemapper(text)
	sidx := 1

	for pos, sentence := range sentences {
		offset, err := remapper.Locate(pos+1, sentence)
		if err != nil {
			if errors.Is(err, ErrSentenceAlignment) {
				a.logger.Warn("skipping sentence", "error", err)
				stats.Skipped++
				continue
			}
			return stats, err
		}

		sent, err := a.chunker.Chunk(sentence)
		if err != nil {
			return stats, fmt.Errorf("chunk sentence %d: %w", pos+1, err)
		}
		if sent == nil || sent.Len() == 0 {
			a.logger.Debug("skipping sentence without tokens", "position", pos+1)
			stats.Skipped++
			continue
		}
		if len(sent.Offsets) != sent.Len() {
			return stats, fmt.Errorf("chunk sentence %d: %d tokens but %d offsets", pos+1, sent.Len(), len(sent.Offsets))
		}

		spans, err := remapper.TokenSpans(pos+1, offset, sentence, sent.Offsets)
		if err != nil {
			a.logger.Warn("skipping sentence", "error", err)
			stats.Skipped++
			continue
		}

		sc := newSentenceContext(sidx, offset)
		if err := a.addTokens(view, sc, sent, spans); err != nil {
			return stats, err
		}
		stats.Tokens += sc.tokens.Issued()

		extractions, err := a.extractor.Extract(ctx, sent)
		if err != nil {
			return stats, fmt.Errorf("extract relations from sentence %d: %w", sidx, err)
		}

		if len(extractions) > 0 {
			view.AddContains(model.TypeMarkable, a.producer, "markables:"+name)
			view.AddContains(model.TypeGenericRelation, a.producer, "relations:"+name)
		}

		for i, ex := range extractions {
			if _, err := a.builder.Build(view, sc, sent, ex); err != nil {
				return stats, fmt.Errorf("sentence %d relation %d: %w", sidx, i+1, err)
			}
		}
		stats.Markables += sc.markables.Issued()
		stats.Relations += sc.relations.Issued()

		stats.Sentences++
		sidx++
		remapper.Advance(len(sentence))
	}

	a.logger.Debug("annotated document",
		"view", view.ID,
		"sentences", stats.Sentences,
		"skipped", stats.Skipped,
		"tokens", stats.Tokens,
		"relations", stats.Relations,
	)

	return stats, nil
}

func (a *Annotator) addTokens(view *model.View, sc *sentenceContext, sent *nlp.ChunkedSentence, spans []model.Span) error {
	sc.tokenIDs = make([]string, len(spans))
	sc.tokenSpans = spans

	for i, span := range spans {
		id := sc.nextTokenID()
		tok, err := view.NewAnnotation(id, model.TypeToken, &span)
		if err != nil {
			return err
		}
		tok.AddFeature(model.FeatureWord, sent.Tokens[i])
		sc.tokenIDs[i] = id
	}

	return nil
}
