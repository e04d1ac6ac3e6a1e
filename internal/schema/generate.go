// Package schema describes the wire document as JSON Schema and validates
// DOCUMENT payloads against it.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaID is the $id of the generated document schema
const SchemaID = "https://github.com/ppiankov/relmark/schema/document.json"

// wireDocument mirrors the JSON shape of model.Document. The model types carry
// custom marshalers, so the schema is reflected from these instead.
type wireDocument struct {
	Text     any            `json:"text" jsonschema:"oneof_type=string;object,description=Primary text or an @value object"`
	Language string         `json:"language,omitempty" jsonschema:"description=Language tag of the text"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Views    []wireView     `json:"views,omitempty"`
}

type wireView struct {
	ID          string           `json:"id" jsonschema:"minLength=1"`
	Metadata    map[string]any   `json:"metadata,omitempty" jsonschema:"description=Holds the contains provenance map"`
	Annotations []wireAnnotation `json:"annotations"`
}

type wireAnnotation struct {
	ID       string         `json:"id" jsonschema:"minLength=1"`
	Type     string         `json:"@type" jsonschema:"minLength=1"`
	Start    *int           `json:"start,omitempty" jsonschema:"minimum=0,description=Code point offset into the document text"`
	End      *int           `json:"end,omitempty" jsonschema:"minimum=0"`
	Features map[string]any `json:"features,omitempty"`
}

// Generate reflects the document schema
func Generate() *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		DoNotReference:            true,
	}

	s := r.Reflect(&wireDocument{})
	s.Version = "http://json-schema.org/draft-07/schema#"
	s.ID = jsonschema.ID(SchemaID)
	s.Title = "relmark document"
	s.Description = "Standoff annotation container with text, metadata and views"
	return s
}

// JSON returns the indented schema document
func JSON() ([]byte, error) {
	data, err := json.MarshalIndent(Generate(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
