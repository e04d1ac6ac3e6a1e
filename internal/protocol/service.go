package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/ppiankov/relmark/internal/annotate"
	"github.com/ppiankov/relmark/internal/model"
	"github.com/ppiankov/relmark/internal/schema"
)

// Annotator adds an annotation view to a document
type Annotator interface {
	Annotate(ctx context.Context, doc *model.Document) (annotate.Stats, error)
}

// Service decodes envelopes, runs the annotator and encodes the result.
// It holds no per-call state, so one Service may serve concurrent calls.
type Service struct {
	annotator Annotator
	language  string
	strict    bool
	metadata  Metadata
	logger    *slog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithLanguage sets the language tag given to TEXT inputs
func WithLanguage(lang string) Option {
	return func(s *Service) { s.language = lang }
}

// WithStrictDocuments validates DOCUMENT payloads against the document schema
func WithStrictDocuments(strict bool) Option {
	return func(s *Service) { s.strict = strict }
}

// WithMetadata sets the service metadata
func WithMetadata(m Metadata) Option {
	return func(s *Service) { s.metadata = m }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a service around an annotator
func NewService(a Annotator, opts ...Option) *Service {
	s := &Service{
		annotator: a,
		language:  "en",
		metadata:  NewMetadata(model.DefaultConfig().Producer),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is the outcome of one call
type Result struct {
	Output        []byte          // The single output envelope
	Discriminator string          // Input discriminator after the TEXT fallback
	Fallback      bool            // Input was not an envelope and was treated as raw text
	Document      *model.Document // Annotated document, nil unless the call succeeded
	Stats         annotate.Stats
	Err           error // Set when Output is an ERROR envelope produced by this call
}

// Passthrough reports whether the input was an ERROR envelope re-emitted unchanged
func (r Result) Passthrough() bool {
	return r.Err == nil && r.Discriminator == DiscriminatorError
}

// Execute processes one input string and returns the output envelope
func (s *Service) Execute(input string) string {
	return string(s.run(context.Background(), []byte(input), true).Output)
}

// ExecuteBytes processes one input. A nil input yields a malformed input error envelope.
func (s *Service) ExecuteBytes(ctx context.Context, input []byte) []byte {
	return s.Run(ctx, input).Output
}

// Run processes one input and reports the details of the call
func (s *Service) Run(ctx context.Context, input []byte) Result {
	return s.run(ctx, input, input != nil)
}

// Metadata returns the service metadata
func (s *Service) Metadata() Metadata {
	return s.metadata
}

func (s *Service) run(ctx context.Context, input []byte, present bool) Result {
	if !present {
		return s.fail(Result{}, &MalformedInputError{Reason: "input is nil"})
	}

	env, fallback, err := decodeEnvelope(input)
	res := Result{Discriminator: env.Discriminator, Fallback: fallback}
	if err != nil {
		return s.fail(res, err)
	}

	var doc *model.Document
	switch {
	case env.Discriminator == DiscriminatorError:
		s.logger.Debug("input contains error, passing through")
		var buf bytes.Buffer
		if err := json.Compact(&buf, input); err != nil {
			return s.fail(res, &MalformedInputError{Reason: "error envelope", Err: err})
		}
		res.Output = buf.Bytes()
		return res

	case IsDocument(env.Discriminator):
		s.logger.Debug("input contains document")
		doc, err = s.decodeDocument(env.Payload)

	case env.Discriminator == DiscriminatorText:
		s.logger.Debug("input contains text", "fallback", fallback)
		doc, err = s.decodeText(env.Payload)

	default:
		err = &UnsupportedInputError{Discriminator: env.Discriminator, Input: string(input)}
	}
	if err != nil {
		return s.fail(res, err)
	}

	stats, err := s.annotator.Annotate(ctx, doc)
	if err != nil {
		return s.fail(res, err)
	}

	out, err := encode(DiscriminatorLIF, doc)
	if err != nil {
		return s.fail(res, err)
	}

	res.Output = out
	res.Document = doc
	res.Stats = stats
	return res
}

func (s *Service) decodeDocument(payload json.RawMessage) (*model.Document, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &MalformedInputError{Reason: "document payload is not an object"}
	}

	if s.strict {
		if err := schema.ValidateDocument(trimmed); err != nil {
			return nil, &MalformedInputError{Reason: "document payload", Err: err}
		}
	}

	var doc model.Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, &MalformedInputError{Reason: "document payload", Err: err}
	}
	return &doc, nil
}

func (s *Service) decodeText(payload json.RawMessage) (*model.Document, error) {
	var text string
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '"' || json.Unmarshal(trimmed, &text) != nil {
		return nil, &MalformedInputError{Reason: "text payload is not a string"}
	}
	return model.NewDocument(text, s.language), nil
}

func (s *Service) fail(res Result, err error) Result {
	var unsupported *UnsupportedInputError
	if errors.As(err, &unsupported) {
		s.logger.Error("unsupported discriminator", "discriminator", unsupported.Discriminator)
	} else {
		s.logger.Error("processing failed", "error", err)
	}
	res.Err = err
	res.Output = ErrorEnvelope(Message(err))
	res.Document = nil
	return res
}
