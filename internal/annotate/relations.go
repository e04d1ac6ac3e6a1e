package annotate

import (
	"fmt"
	"strings"

	"github.com/ppiankov/relmark/internal/model"
	"github.com/ppiankov/relmark/internal/nlp"
)

// Policy switches between encodings of the relation graph
type Policy struct {
	// StringifyArguments writes "arguments" as one "[m_1_2, m_1_3]" string instead of a list
	StringifyArguments bool

	// MarkableTargets adds the ids of the covered tokens to each markable
	MarkableTargets bool
}

// DefaultPolicy returns the canonical encoding
func DefaultPolicy() Policy {
	return Policy{MarkableTargets: true}
}

// GraphBuilder turns extractions into markables and relation annotations
type GraphBuilder struct {
	policy Policy
}

// NewGraphBuilder creates a builder
func NewGraphBuilder(policy Policy) *GraphBuilder {
	return &GraphBuilder{policy: policy}
}

// Build adds the predicate, arg1 and arg2 markables, in that order, and then
// the relation that refers to them by id.
func (b *GraphBuilder) Build(view *model.View, sc *sentenceContext, sent *nlp.ChunkedSentence, ex nlp.Extraction) (*model.Annotation, error) {
	pred, err := b.markable(view, sc, ex.Predicate)
	if err != nil {
		return nil, fmt.Errorf("predicate markable: %w", err)
	}
	arg1, err := b.markable(view, sc, ex.Arg1)
	if err != nil {
		return nil, fmt.Errorf("arg1 markable: %w", err)
	}
	arg2, err := b.markable(view, sc, ex.Arg2)
	if err != nil {
		return nil, fmt.Errorf("arg2 markable: %w", err)
	}

	rel, err := view.NewAnnotation(sc.nextRelationID(), model.TypeGenericRelation, nil)
	if err != nil {
		return nil, err
	}

	label := ex.PredicateText
	if label == "" {
		label = sent.TextOf(ex.Predicate)
	}

	rel.AddFeature(model.FeatureArguments, b.arguments(arg1.ID, arg2.ID))
	rel.AddFeature(model.FeatureRelation, pred.ID)
	rel.AddFeature(model.FeatureLabel, label)

	return rel, nil
}

func (b *GraphBuilder) markable(view *model.View, sc *sentenceContext, rg nlp.Range) (*model.Annotation, error) {
	span, err := MarkableSpan(sc.tokenSpans, rg)
	if err != nil {
		return nil, err
	}

	m, err := view.NewAnnotation(sc.nextMarkableID(), model.TypeMarkable, &span)
	if err != nil {
		return nil, err
	}

	if b.policy.MarkableTargets {
		targets := make([]string, 0, rg.Len())
		targets = append(targets, sc.tokenIDs[rg.First:rg.Last+1]...)
		m.AddFeature(model.FeatureTargets, targets)
	}

	return m, nil
}

func (b *GraphBuilder) arguments(ids ...string) any {
	if b.policy.StringifyArguments {
		return "[" + strings.Join(ids, ", ") + "]"
	}
	return ids
}
