package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDuplicateID is returned when an annotation id is already used in a view
var ErrDuplicateID = errors.New("duplicate annotation id")

// DuplicateIDError reports an identifier collision inside one view
type DuplicateIDError struct {
	ViewID string
	ID     string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate annotation id %q in view %q", e.ID, e.ViewID)
}

// Is matches ErrDuplicateID
func (e *DuplicateIDError) Is(target error) bool {
	return target == ErrDuplicateID
}

// Contains is the provenance record for one annotation type in a view
type Contains struct {
	Producer string `json:"producer"` // "<name>:<version>"
	Type     string `json:"type"`     // human label, e.g. "tokenization:pattern"
}

// ViewMetadata holds the provenance map plus any other metadata keys the view arrived with
type ViewMetadata struct {
	Contains map[string]Contains
	Extra    map[string]json.RawMessage
}

// MarshalJSON merges the extra keys with "contains"
func (m ViewMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+1)
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.Contains != nil {
		out["contains"] = m.Contains
	}
	return marshalJSON(out)
}

// UnmarshalJSON splits "contains" from the remaining metadata keys
func (m *ViewMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Contains = nil
	m.Extra = nil
	for k, v := range raw {
		if k == "contains" {
			if err := json.Unmarshal(v, &m.Contains); err != nil {
				return fmt.Errorf("contains: %w", err)
			}
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]json.RawMessage)
		}
		m.Extra[k] = v
	}
	return nil
}

// View is one layer of annotations over a document, appended in creation order
type View struct {
	ID          string        `json:"id"`
	Metadata    ViewMetadata  `json:"metadata"`
	Annotations []*Annotation `json:"annotations"`

	index map[string]int
}

func newView(id string) *View {
	return &View{
		ID:          id,
		Metadata:    ViewMetadata{Contains: make(map[string]Contains)},
		Annotations: []*Annotation{},
		index:       make(map[string]int),
	}
}

// NewAnnotation appends a new annotation and returns it for feature assignment.
// span may be nil for annotations that only reference others.
func (v *View) NewAnnotation(id, annotationType string, span *Span) (*Annotation, error) {
	if _, exists := v.index[id]; exists {
		return nil, &DuplicateIDError{ViewID: v.ID, ID: id}
	}
	a := &Annotation{ID: id, Type: annotationType}
	if span != nil {
		if !span.Valid() {
			return nil, fmt.Errorf("annotation %q: %w: %s", id, ErrInvalidSpan, span)
		}
		s := *span
		a.Span = &s
	}
	if v.index == nil {
		v.index = make(map[string]int)
	}
	v.index[id] = len(v.Annotations)
	v.Annotations = append(v.Annotations, a)
	return a, nil
}

// AddContains records or overwrites the provenance entry for an annotation type
func (v *View) AddContains(annotationType, producer, label string) {
	if v.Metadata.Contains == nil {
		v.Metadata.Contains = make(map[string]Contains)
	}
	v.Metadata.Contains[annotationType] = Contains{Producer: producer, Type: label}
}

// Contains returns the provenance entry for an annotation type, if any
func (v *View) Contains(annotationType string) (Contains, bool) {
	c, ok := v.Metadata.Contains[annotationType]
	return c, ok
}

// Find looks an annotation up by id
func (v *View) Find(id string) (*Annotation, bool) {
	i, ok := v.index[id]
	if !ok {
		return nil, false
	}
	return v.Annotations[i], true
}

// Position returns the index of an annotation in creation order, or -1
func (v *View) Position(id string) int {
	if i, ok := v.index[id]; ok {
		return i
	}
	return -1
}

// OfType returns the annotations of one type in creation order
func (v *View) OfType(annotationType string) []*Annotation {
	var out []*Annotation
	for _, a := range v.Annotations {
		if a.Type == annotationType {
			out = append(out, a)
		}
	}
	return out
}

// UnmarshalJSON decodes a view and rebuilds its id index
func (v *View) UnmarshalJSON(data []byte) error {
	type plain View
	var in plain
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*v = View(in)
	if v.Annotations == nil {
		v.Annotations = []*Annotation{}
	}
	v.index = make(map[string]int, len(v.Annotations))
	for i, a := range v.Annotations {
		if a == nil {
			return fmt.Errorf("view %q: null annotation at position %d", v.ID, i)
		}
		if _, exists := v.index[a.ID]; exists {
			return &DuplicateIDError{ViewID: v.ID, ID: a.ID}
		}
		v.index[a.ID] = i
	}
	return nil
}
