package protocol

import (
	"github.com/ppiankov/relmark/internal/model"
)

// Metadata constants
const (
	MetadataSchema = "http://vocab.lappsgrid.org/schema/metadata-schema-1.1.0.json"
	LicenseApache2 = "http://vocab.lappsgrid.org/ns/license#apache-2.0"
	AllowAny       = "http://vocab.lappsgrid.org/ns/allow#any"
	EncodingUTF8   = "UTF-8"
)

// IOFormats lists the formats a service accepts or emits
type IOFormats struct {
	Language    []string `json:"language" yaml:"language"`
	Encoding    string   `json:"encoding" yaml:"encoding"`
	Format      []string `json:"format" yaml:"format"`
	Annotations []string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// Metadata describes the service
type Metadata struct {
	Schema      string    `json:"$schema" yaml:"$schema"`
	Name        string    `json:"name" yaml:"name"`
	Version     string    `json:"version" yaml:"version"`
	Vendor      string    `json:"vendor" yaml:"vendor"`
	License     string    `json:"license" yaml:"license"`
	Allow       string    `json:"allow" yaml:"allow"`
	Description string    `json:"description" yaml:"description"`
	Requires    IOFormats `json:"requires" yaml:"requires"`
	Produces    IOFormats `json:"produces" yaml:"produces"`
}

// NewMetadata builds the metadata document for a producer
func NewMetadata(p model.ProducerConfig) Metadata {
	lang := p.Language
	if lang == "" {
		lang = "en"
	}

	return Metadata{
		Schema:      MetadataSchema,
		Name:        p.Name,
		Version:     p.Version,
		Vendor:      p.Vendor,
		License:     LicenseApache2,
		Allow:       AllowAny,
		Description: "Binary relation extractor producing tokens, markables and generic relations",
		Requires: IOFormats{
			Language: []string{lang},
			Encoding: EncodingUTF8,
			Format:   []string{DiscriminatorText, DiscriminatorLIF},
		},
		Produces: IOFormats{
			Language:    []string{lang},
			Encoding:    EncodingUTF8,
			Format:      []string{DiscriminatorLIF},
			Annotations: []string{model.TypeToken, model.TypeGenericRelation, model.TypeMarkable},
		},
	}
}

// Envelope returns the compact META envelope
func (m Metadata) Envelope() ([]byte, error) {
	return encode(DiscriminatorMeta, m)
}
