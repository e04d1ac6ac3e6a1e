package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ppiankov/relmark/internal/ident"
)

// Document holds a source text and the annotation views layered over it.
// The text is fixed at construction so view offsets always refer to the same string.
type Document struct {
	text     string
	language string
	metadata map[string]json.RawMessage
	views    []*View
}

// NewDocument creates a document with no views
func NewDocument(text, language string) *Document {
	return &Document{text: text, language: language}
}

// Text returns the source text
func (d *Document) Text() string { return d.text }

// Language returns the declared language tag
func (d *Document) Language() string { return d.language }

// Views returns the views in order
func (d *Document) Views() []*View {
	return append([]*View(nil), d.views...)
}

// View looks a view up by id
func (d *Document) View(id string) (*View, bool) {
	for _, v := range d.views {
		if v.ID == id {
			return v, true
		}
	}
	return nil, false
}

// NewView appends an empty view with an id unique among the document's views
func (d *Document) NewView() *View {
	n := len(d.views) + 1
	id := ident.MakeScoped(ident.PrefixView, n)
	for {
		if _, taken := d.View(id); !taken {
			break
		}
		n++
		id = ident.MakeScoped(ident.PrefixView, n)
	}
	v := newView(id)
	d.views = append(d.views, v)
	return v
}

// documentJSON is the normalized wire form
type documentJSON struct {
	Text     string                     `json:"text"`
	Language string                     `json:"language"`
	Metadata map[string]json.RawMessage `json:"metadata,omitempty"`
	Views    []*View                    `json:"views"`
}

// MarshalJSON writes the normalized document shape
func (d *Document) MarshalJSON() ([]byte, error) {
	views := d.views
	if views == nil {
		views = []*View{}
	}
	return marshalJSON(documentJSON{
		Text:     d.text,
		Language: d.language,
		Metadata: d.metadata,
		Views:    views,
	})
}

// UnmarshalJSON accepts "text" either as a plain string or as the
// {"@value": ..., "@language": ...} object form.
func (d *Document) UnmarshalJSON(data []byte) error {
	var in struct {
		Text     json.RawMessage            `json:"text"`
		Language string                     `json:"language"`
		Metadata map[string]json.RawMessage `json:"metadata"`
		Views    []*View                    `json:"views"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	text, lang, err := decodeText(in.Text)
	if err != nil {
		return err
	}
	if in.Language != "" {
		lang = in.Language
	}

	for i, v := range in.Views {
		if v == nil {
			return fmt.Errorf("null view at position %d", i)
		}
	}

	d.text = text
	d.language = lang
	d.metadata = in.Metadata
	d.views = in.Views
	return nil
}

func decodeText(raw json.RawMessage) (string, string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, "", nil
	}
	var obj struct {
		Value    string `json:"@value"`
		Language string `json:"@language"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", "", fmt.Errorf("text: expected string or {\"@value\": ...} object")
	}
	return obj.Value, obj.Language, nil
}

// marshalJSON encodes v like json.Marshal but leaves <, > and & as written,
// so document text survives byte for byte.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
