package nlp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleSplitter_Split(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single sentence",
			text: "She swam to Paris.",
			want: []string{"She swam to Paris."},
		},
		{
			name: "two sentences with trailing space",
			text: "Mary loves John, but John hates her. Sally is his wife. ",
			want: []string{"Mary loves John, but John hates her.", "Sally is his wife."},
		},
		{
			name: "abbreviations and initials",
			text: "Dr. Smith met J. Doe in Boston. They talked.",
			want: []string{"Dr. Smith met J. Doe in Boston.", "They talked."},
		},
		{
			name: "closing quote stays with sentence",
			text: `He said "stop." Then he left!`,
			want: []string{`He said "stop."`, "Then he left!"},
		},
		{
			name: "blank line ends paragraph",
			text: "A heading\n\nThe body starts here.",
			want: []string{"A heading", "The body starts here."},
		},
		{
			name: "no terminator",
			text: "  just words  ",
			want: []string{"just words"},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
		{
			name: "whitespace only",
			text: " \n\t ",
			want: nil,
		},
	}

	s := NewRuleSplitter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Split(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleSplitter_VerbatimSubstrings(t *testing.T) {
	text := "Über alles.  Zweiter Satz?\nDritter Satz!"
	got, err := NewRuleSplitter().Split(text)
	require.NoError(t, err)
	require.Len(t, got, 3)

	cursor := 0
	for _, sent := range got {
		idx := strings.Index(text[cursor:], sent)
		require.GreaterOrEqual(t, idx, 0, "sentence %q must be a substring", sent)
		cursor += idx + len(sent)
	}
}
