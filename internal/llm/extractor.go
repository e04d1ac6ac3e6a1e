package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/relmark/internal/metrics"
	"github.com/ppiankov/relmark/internal/nlp"
)

const systemPrompt = `You extract binary relations from one English sentence.
The sentence is given as numbered tokens. A relation has a subject (arg1), a
predicate and an object (arg2); each is an inclusive token range [first, last].
Ranges must not overlap and must appear in the order arg1, predicate, arg2.
Reply with JSON only: {"relations":[{"arg1":[0,0],"predicate":[1,2],"arg2":[3,3]}]}.
Reply {"relations":[]} when the sentence states no relation.`

// Extractor finds relations by prompting a model with the chunked sentence
type Extractor struct {
	provider Provider
	logger   *slog.Logger
}

// NewExtractor wraps a provider
func NewExtractor(provider Provider) *Extractor {
	return &Extractor{provider: provider, logger: slog.Default()}
}

// WithLogger sets the logger used for discarded replies
func (e *Extractor) WithLogger(l *slog.Logger) *Extractor {
	if l != nil {
		e.logger = l
	}
	return e
}

// Name returns the provider name used in provenance labels
func (e *Extractor) Name() string {
	return e.provider.Name()
}

// Extract asks the model for relations. Ranges outside the sentence or out
// of order are dropped rather than failing the document.
func (e *Extractor) Extract(ctx context.Context, sent *nlp.ChunkedSentence) ([]nlp.Extraction, error) {
	if sent.Len() == 0 {
		return nil, nil
	}

	start := time.Now()
	resp, err := e.provider.Complete(ctx, CompletionRequest{
		System: systemPrompt,
		Prompt: BuildPrompt(sent),
		JSON:   true,
	})
	metrics.RecordLLMRequest(e.provider.Name(), err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("extract relations: %w", err)
	}

	rels, err := ParseRelations(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("extract relations: %w", err)
	}

	out := make([]nlp.Extraction, 0, len(rels))
	for _, r := range rels {
		ex, ok := r.extraction(sent)
		if !ok {
			e.logger.Debug("discarding relation", "provider", e.provider.Name(), "relation", r)
			continue
		}
		out = append(out, ex)
	}
	return out, nil
}

// BuildPrompt numbers the tokens of a sentence
func BuildPrompt(sent *nlp.ChunkedSentence) string {
	var b strings.Builder
	b.WriteString("Tokens:\n")
	for i, tok := range sent.Tokens {
		fmt.Fprintf(&b, "%d: %s\n", i, tok)
	}
	return b.String()
}

// RawRelation is one relation as the model reports it
type RawRelation struct {
	Arg1      []int `json:"arg1"`
	Predicate []int `json:"predicate"`
	Arg2      []int `json:"arg2"`
}

// ParseRelations reads the JSON reply, tolerating code fences and text around the object
func ParseRelations(reply string) ([]RawRelation, error) {
	first := strings.Index(reply, "{")
	last := strings.LastIndex(reply, "}")
	if first < 0 || last < first {
		return nil, fmt.Errorf("no JSON object in reply %q", truncate(reply, 80))
	}

	var parsed struct {
		Relations []RawRelation `json:"relations"`
	}
	if err := json.Unmarshal([]byte(reply[first:last+1]), &parsed); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	return parsed.Relations, nil
}

func (r RawRelation) extraction(sent *nlp.ChunkedSentence) (nlp.Extraction, bool) {
	n := sent.Len()
	arg1, ok1 := toRange(r.Arg1, n)
	pred, ok2 := toRange(r.Predicate, n)
	arg2, ok3 := toRange(r.Arg2, n)
	if !ok1 || !ok2 || !ok3 {
		return nlp.Extraction{}, false
	}
	if arg1.Last >= pred.First || pred.Last >= arg2.First {
		return nlp.Extraction{}, false
	}
	return nlp.Extraction{
		Predicate:     pred,
		Arg1:          arg1,
		Arg2:          arg2,
		PredicateText: sent.TextOf(pred),
	}, true
}

func toRange(v []int, n int) (nlp.Range, bool) {
	if len(v) != 2 || v[0] < 0 || v[0] > v[1] || v[1] >= n {
		return nlp.Range{}, false
	}
	return nlp.Range{First: v[0], Last: v[1]}, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
