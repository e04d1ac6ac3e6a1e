package model

import (
	"encoding/json"
	"fmt"
)

// Annotation is a typed, id-addressable piece of standoff metadata.
// Other annotations are referenced by storing their ids in feature values.
type Annotation struct {
	ID       string
	Type     string
	Span     *Span
	Features map[string]any
}

// AddFeature sets a feature value
func (a *Annotation) AddFeature(key string, value any) {
	if a.Features == nil {
		a.Features = make(map[string]any)
	}
	a.Features[key] = value
}

// Feature returns a feature value and whether it is present
func (a *Annotation) Feature(key string) (any, bool) {
	v, ok := a.Features[key]
	return v, ok
}

// annotationJSON is the wire form of an annotation
type annotationJSON struct {
	ID       string         `json:"id"`
	Type     string         `json:"@type"`
	Start    *int           `json:"start,omitempty"`
	End      *int           `json:"end,omitempty"`
	Features map[string]any `json:"features"`
}

// MarshalJSON writes start/end only for span-bearing annotations
func (a *Annotation) MarshalJSON() ([]byte, error) {
	out := annotationJSON{
		ID:       a.ID,
		Type:     a.Type,
		Features: a.Features,
	}
	if out.Features == nil {
		out.Features = map[string]any{}
	}
	if a.Span != nil {
		start, end := a.Span.Start, a.Span.End
		out.Start = &start
		out.End = &end
	}
	return marshalJSON(out)
}

// UnmarshalJSON reads the wire form; a span is set only when both offsets are present
func (a *Annotation) UnmarshalJSON(data []byte) error {
	var in annotationJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	a.ID = in.ID
	a.Type = in.Type
	a.Features = in.Features
	a.Span = nil
	if in.Start != nil && in.End != nil {
		span, err := NewSpan(*in.Start, *in.End)
		if err != nil {
			return fmt.Errorf("annotation %q: %w", in.ID, err)
		}
		a.Span = &span
	}
	return nil
}
