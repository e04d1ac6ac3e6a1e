package pipeline

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/relmark/internal/annotate"
	"github.com/ppiankov/relmark/internal/cache"
	"github.com/ppiankov/relmark/internal/protocol"
)

func newTestPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	svc := protocol.NewService(annotate.New())
	return NewPipeline(svc, opts...)
}

func TestPipeline_ProcessCachesSuccess(t *testing.T) {
	c := cache.NewLayeredCache(time.Minute, filepath.Join(t.TempDir(), "cache"), time.Hour)
	p := newTestPipeline(t, WithCache(c, time.Hour, "relmark:test|pattern"))

	in := &Input{Name: "a", Data: []byte("She swam to Paris.")}

	first := p.Process(context.Background(), in)
	if first.Err != nil {
		t.Fatalf("unexpected error: %v", first.Err)
	}
	if first.Cached {
		t.Fatal("first call cannot be cached")
	}

	second := p.Process(context.Background(), in)
	if !second.Cached {
		t.Error("second call should hit the cache")
	}
	if !bytes.Equal(first.Output, second.Output) {
		t.Error("cached output differs")
	}
}

func TestPipeline_ProcessDoesNotCacheErrors(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	p := newTestPipeline(t, WithCache(c, 0, "fp"))

	in := &Input{Name: "bad", Data: []byte("null")}
	res := p.Process(context.Background(), in)
	if res.Err == nil {
		t.Fatal("expected error for null input")
	}
	if c.Len() != 0 {
		t.Error("error envelopes must not be cached")
	}
}

func TestKindAndOutcome(t *testing.T) {
	svc := protocol.NewService(annotate.New())
	tests := []struct {
		input   string
		kind    string
		outcome string
	}{
		{"She swam to Paris.", "text", "ok"},
		{`{"discriminator":"` + protocol.DiscriminatorLIF + `","payload":{"text":"Hi."}}`, "document", "ok"},
		{`{"discriminator":"` + protocol.DiscriminatorError + `","payload":"x"}`, "error", "passthrough"},
		{`{"discriminator":"urn:other","payload":"x"}`, "unsupported", "error"},
		{"null", "invalid", "error"},
	}
	for _, tt := range tests {
		run := Execute(context.Background(), svc, []byte(tt.input))
		if got := Kind(run); got != tt.kind {
			t.Errorf("Kind(%s) = %s, want %s", tt.input, got, tt.kind)
		}
		if got := Outcome(run); got != tt.outcome {
			t.Errorf("Outcome(%s) = %s, want %s", tt.input, got, tt.outcome)
		}
	}
}

func TestWriteOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\"a\":1}\n" {
		t.Errorf("unexpected output %q", buf.String())
	}

	path := filepath.Join(t.TempDir(), "rel", "20260101", "doc.lif")
	if err := WriteFile(path, []byte("x")); err != nil {
		t.Fatal(err)
	}
}
