package nlp

import "context"

// PatternExtractor finds "NP verb-group NP" relations, where the verb group is
// auxiliaries and adverbs, an optional main verb and an optional preposition.
type PatternExtractor struct{}

// NewPatternExtractor creates an extractor
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

// Name returns the extractor name used in provenance labels
func (e *PatternExtractor) Name() string {
	return "pattern"
}

// Extract scans the chunked sentence left to right
func (e *PatternExtractor) Extract(_ context.Context, sent *ChunkedSentence) ([]Extraction, error) {
	n := sent.Len()
	if n == 0 || len(sent.Tags) != n {
		return nil, nil
	}

	chunkAt := make(map[int]Range, len(sent.Chunks))
	for _, c := range sent.Chunks {
		chunkAt[c.First] = c
	}

	var out []Extraction
	for i := 0; i < n; {
		arg1, ok := chunkAt[i]
		if !ok {
			i++
			continue
		}

		pred, next, ok := verbGroup(sent.Tags, arg1.Last+1, chunkAt)
		if !ok {
			i = arg1.Last + 1
			continue
		}

		arg2, ok := objectAt(sent.Tags, next, chunkAt)
		if !ok {
			i = arg1.Last + 1
			continue
		}

		out = append(out, Extraction{
			Predicate:     pred,
			Arg1:          arg1,
			Arg2:          arg2,
			PredicateText: sent.TextOf(pred),
		})
		i = arg2.Last + 1
	}

	return out, nil
}

// verbGroup matches AUX/RB* X? IN? starting at j and requires an auxiliary or a main verb
func verbGroup(tags []Tag, j int, chunkAt map[int]Range) (Range, int, bool) {
	first := j
	hasVerb := false

	for j < len(tags) && (tags[j] == TagAuxiliary || tags[j] == TagAdverb) {
		if tags[j] == TagAuxiliary {
			hasVerb = true
		}
		j++
	}

	if j < len(tags) && tags[j] == TagOpen {
		if _, isChunk := chunkAt[j]; !isChunk {
			hasVerb = true
			j++
		}
	}

	if !hasVerb {
		return Range{}, first, false
	}

	if j < len(tags) && tags[j] == TagPreposition {
		j++
	}

	return Range{First: first, Last: j - 1}, j, true
}

// objectAt matches a noun phrase chunk or a run of bare nominal words at j
func objectAt(tags []Tag, j int, chunkAt map[int]Range) (Range, bool) {
	if j >= len(tags) {
		return Range{}, false
	}
	if c, ok := chunkAt[j]; ok {
		return c, true
	}
	if !nominal(tags[j]) {
		return Range{}, false
	}
	last := j
	for last+1 < len(tags) && nominal(tags[last+1]) {
		last++
	}
	return Range{First: j, Last: last}, true
}
