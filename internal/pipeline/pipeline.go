package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/relmark/internal/cache"
	"github.com/ppiankov/relmark/internal/metrics"
	"github.com/ppiankov/relmark/internal/protocol"
)

// Pipeline runs inputs through the protocol service with result caching
type Pipeline struct {
	service     *protocol.Service
	cache       cache.Cache
	ttl         time.Duration
	fingerprint string
	logger      *slog.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithCache enables result caching. fingerprint identifies everything besides
// the input that determines the output.
func WithCache(c cache.Cache, ttl time.Duration, fingerprint string) Option {
	return func(p *Pipeline) {
		p.cache = c
		p.ttl = ttl
		p.fingerprint = fingerprint
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a pipeline around a service
func NewPipeline(service *protocol.Service, opts ...Option) *Pipeline {
	p := &Pipeline{
		service: service,
		cache:   cache.Nop{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the output for one input
type Result struct {
	Name   string
	Output []byte
	Cached bool
	Err    error // set when Output is an ERROR envelope
	Run    protocol.Result
}

// Process runs one input. Only successful outputs are cached.
func (p *Pipeline) Process(ctx context.Context, in *Input) *Result {
	key := cache.Key(p.fingerprint, in.Data)
	if out, ok := p.cache.Get(key); ok {
		p.logger.Debug("cache hit", "input", in.Name)
		metrics.RecordCacheLookup(true)
		return &Result{Name: in.Name, Output: out, Cached: true}
	}
	metrics.RecordCacheLookup(false)

	run := Execute(ctx, p.service, in.Data)

	if run.Err == nil && !run.Passthrough() {
		if err := p.cache.Set(key, run.Output, p.ttl); err != nil {
			p.logger.Warn("cache write failed", "input", in.Name, "error", err)
		}
	}

	return &Result{Name: in.Name, Output: run.Output, Err: run.Err, Run: run}
}

// LoadFailure is the result for an input that could not be read. Its output
// is the ERROR envelope the service would emit for err.
func LoadFailure(name string, err error) *Result {
	return &Result{Name: name, Output: protocol.ErrorEnvelope(protocol.Message(err)), Err: err}
}

// Execute runs the service and records execution metrics
func Execute(ctx context.Context, service *protocol.Service, input []byte) protocol.Result {
	start := time.Now()
	run := service.Run(ctx, input)
	metrics.RecordExecution(Kind(run), Outcome(run), time.Since(start))
	if run.Document != nil {
		metrics.RecordAnnotations(run.Stats.Tokens, run.Stats.Markables, run.Stats.Relations, run.Stats.Skipped)
	}
	return run
}

// Kind labels the input of a run
func Kind(run protocol.Result) string {
	switch {
	case run.Discriminator == protocol.DiscriminatorText:
		return "text"
	case protocol.IsDocument(run.Discriminator):
		return "document"
	case run.Discriminator == protocol.DiscriminatorError:
		return "error"
	case run.Discriminator == "":
		return "invalid"
	}
	return "unsupported"
}

// Outcome labels the result of a run
func Outcome(run protocol.Result) string {
	switch {
	case run.Err != nil:
		return "error"
	case run.Passthrough():
		return "passthrough"
	}
	return "ok"
}

// WriteOutput writes an output envelope followed by a newline
func WriteOutput(w io.Writer, output []byte) error {
	if _, err := w.Write(output); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// WriteFile writes an output envelope to path, creating parent directories
func WriteFile(path string, output []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, output, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
