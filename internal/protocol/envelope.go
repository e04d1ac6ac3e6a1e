// Package protocol implements the discriminated envelope format: decoding,
// dispatch to the annotator, the error envelope and service metadata.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Discriminator URIs
const (
	DiscriminatorError  = "http://vocab.lappsgrid.org/ns/error"
	DiscriminatorLIF    = "http://vocab.lappsgrid.org/ns/media/jsonld#lif"
	DiscriminatorJSONLD = "http://vocab.lappsgrid.org/ns/media/jsonld"
	DiscriminatorText   = "http://vocab.lappsgrid.org/ns/media/text"
	DiscriminatorMeta   = "http://vocab.lappsgrid.org/ns/meta"
)

// Envelope is the wire wrapper around every payload
type Envelope struct {
	Discriminator string          `json:"discriminator"`
	Payload       json.RawMessage `json:"payload"`
	Parameters    map[string]any  `json:"parameters,omitempty"`
}

// IsDocument reports whether the discriminator selects a document payload
func IsDocument(discriminator string) bool {
	return discriminator == DiscriminatorLIF || discriminator == DiscriminatorJSONLD
}

// decodeEnvelope parses input as an envelope. Anything that is not a JSON
// object with a string discriminator is wrapped as raw TEXT.
func decodeEnvelope(input []byte) (Envelope, bool, error) {
	if bytes.Equal(bytes.TrimSpace(input), []byte("null")) {
		return Envelope{}, false, &MalformedInputError{Reason: "input is null"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(input, &fields); err != nil || fields == nil {
		return textEnvelope(input)
	}

	var env Envelope
	raw, ok := fields["discriminator"]
	if !ok || json.Unmarshal(raw, &env.Discriminator) != nil {
		return textEnvelope(input)
	}

	env.Payload = fields["payload"]
	if params, ok := fields["parameters"]; ok {
		// Parameters are informational; a malformed block is ignored
		_ = json.Unmarshal(params, &env.Parameters)
	}

	return env, false, nil
}

func textEnvelope(input []byte) (Envelope, bool, error) {
	payload, err := json.Marshal(string(input))
	if err != nil {
		return Envelope{}, true, &MalformedInputError{Reason: "cannot wrap input as text", Err: err}
	}
	return Envelope{Discriminator: DiscriminatorText, Payload: payload}, true, nil
}

// encode writes a compact envelope without HTML escaping
func encode(discriminator string, payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(struct {
		Discriminator string `json:"discriminator"`
		Payload       any    `json:"payload"`
	}{discriminator, payload})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ErrorEnvelope returns the compact ERROR envelope for a message
func ErrorEnvelope(message string) []byte {
	out, err := encode(DiscriminatorError, message)
	if err != nil {
		return []byte(`{"discriminator":"` + DiscriminatorError + `","payload":"internal error"}`)
	}
	return out
}
