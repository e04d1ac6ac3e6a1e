package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestView_NewAnnotation(t *testing.T) {
	doc := NewDocument("Hello world", "en")
	view := doc.NewView()
	assert.Equal(t, "v1", view.ID)

	span := Span{Start: 0, End: 5}
	tok, err := view.NewAnnotation("tk_1_1", TypeToken, &span)
	require.NoError(t, err)
	tok.AddFeature(FeatureWord, "Hello")

	// the view keeps its own copy of the span
	span.End = 99
	assert.Equal(t, 5, tok.Span.End)

	_, err = view.NewAnnotation("tk_1_1", TypeToken, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateID))

	var dup *DuplicateIDError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "v1", dup.ViewID)

	_, err = view.NewAnnotation("tk_1_2", TypeToken, &Span{Start: 4, End: 1})
	assert.True(t, errors.Is(err, ErrInvalidSpan))

	found, ok := view.Find("tk_1_1")
	require.True(t, ok)
	assert.Same(t, tok, found)
	assert.Equal(t, 0, view.Position("tk_1_1"))
	assert.Equal(t, -1, view.Position("missing"))
	assert.Len(t, view.OfType(TypeToken), 1)
	assert.Empty(t, view.OfType(TypeMarkable))
}

func TestView_Contains(t *testing.T) {
	view := NewDocument("x", "en").NewView()

	_, ok := view.Contains(TypeToken)
	assert.False(t, ok, "absent provenance must be reported, not assumed")

	view.AddContains(TypeToken, "relmark:1.0", "tokenization:pattern")
	view.AddContains(TypeToken, "relmark:1.1", "tokenization:pattern")

	c, ok := view.Contains(TypeToken)
	require.True(t, ok)
	assert.Equal(t, "relmark:1.1", c.Producer)
	assert.Equal(t, "tokenization:pattern", c.Type)
}

func TestDocument_NewViewSkipsTakenIDs(t *testing.T) {
	var doc Document
	input := `{"text":"abc","language":"en","views":[{"id":"v2","metadata":{},"annotations":[]}]}`
	require.NoError(t, json.Unmarshal([]byte(input), &doc))

	v := doc.NewView()
	assert.Equal(t, "v3", v.ID)
	assert.Len(t, doc.Views(), 2)

	got, ok := doc.View("v2")
	require.True(t, ok)
	assert.Equal(t, "v2", got.ID)
}

func TestDocument_MarshalJSON(t *testing.T) {
	doc := NewDocument("She swam.", "en")
	view := doc.NewView()
	view.AddContains(TypeToken, "relmark:1.0", "tokenization:pattern")
	tok, err := view.NewAnnotation("tk_1_1", TypeToken, &Span{Start: 0, End: 3})
	require.NoError(t, err)
	tok.AddFeature(FeatureWord, "She")
	rel, err := view.NewAnnotation("rel_1_1", TypeGenericRelation, nil)
	require.NoError(t, err)
	rel.AddFeature(FeatureArguments, []string{"m_1_2", "m_1_3"})

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	expected := `{"text":"She swam.","language":"en","views":[{"id":"v1",` +
		`"metadata":{"contains":{"http://vocab.lappsgrid.org/Token":{"producer":"relmark:1.0","type":"tokenization:pattern"}}},` +
		`"annotations":[` +
		`{"id":"tk_1_1","@type":"http://vocab.lappsgrid.org/Token","start":0,"end":3,"features":{"word":"She"}},` +
		`{"id":"rel_1_1","@type":"http://vocab.lappsgrid.org/GenericRelation","features":{"arguments":["m_1_2","m_1_3"]}}]}]}`
	assert.JSONEq(t, expected, string(data))
}

func TestDocument_MarshalKeepsHTMLCharacters(t *testing.T) {
	doc := NewDocument("A & <B>", "en")
	view := doc.NewView()
	tok, err := view.NewAnnotation("tk_1_1", TypeToken, &Span{Start: 4, End: 7})
	require.NoError(t, err)
	tok.AddFeature(FeatureWord, "<B>")

	data, err := marshalJSON(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"text":"A & <B>"`)
	assert.Contains(t, string(data), `"word":"<B>"`)
	assert.NotContains(t, string(data), "\n")
}

func TestDocument_UnmarshalTextObjectForm(t *testing.T) {
	input := `{
		"@context": "http://vocab.lappsgrid.org/context-1.0.0.jsonld",
		"metadata": {"source": "corpus"},
		"text": {"@value": "Mary loves John.", "@language": "en"},
		"views": [{
			"id": "v1",
			"metadata": {"contains": {"http://vocab.lappsgrid.org/Token": {"producer": "other:1", "type": "tok"}}, "timestamp": "2020"},
			"annotations": [{"id": "t0", "@type": "http://vocab.lappsgrid.org/Token", "start": 0, "end": 4, "features": {"word": "Mary"}}]
		}]
	}`

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(input), &doc))
	assert.Equal(t, "Mary loves John.", doc.Text())
	assert.Equal(t, "en", doc.Language())

	v, ok := doc.View("v1")
	require.True(t, ok)
	a, ok := v.Find("t0")
	require.True(t, ok)
	require.NotNil(t, a.Span)
	assert.Equal(t, Span{Start: 0, End: 4}, *a.Span)

	out, err := json.Marshal(&doc)
	require.NoError(t, err)

	var round map[string]any
	require.NoError(t, json.Unmarshal(out, &round))
	assert.Equal(t, "Mary loves John.", round["text"])
	assert.Equal(t, map[string]any{"source": "corpus"}, round["metadata"])

	views := round["views"].([]any)
	meta := views[0].(map[string]any)["metadata"].(map[string]any)
	assert.Equal(t, "2020", meta["timestamp"], "unknown view metadata is preserved")
}

func TestDocument_UnmarshalRejectsDuplicateIDs(t *testing.T) {
	input := `{"text":"ab","views":[{"id":"v1","annotations":[{"id":"a","@type":"T"},{"id":"a","@type":"T"}]}]}`
	var doc Document
	err := json.Unmarshal([]byte(input), &doc)
	assert.True(t, errors.Is(err, ErrDuplicateID))
}

func TestDocument_UnmarshalRejectsBadText(t *testing.T) {
	var doc Document
	assert.Error(t, json.Unmarshal([]byte(`{"text": 42}`), &doc))
}
