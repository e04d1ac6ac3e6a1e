package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/ppiankov/relmark/internal/protocol"
)

func textPayload(t *testing.T, data []byte) string {
	t.Helper()
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("not an envelope: %v", err)
	}
	if env.Discriminator != protocol.DiscriminatorText {
		t.Fatalf("expected TEXT envelope, got %s", env.Discriminator)
	}
	var text string
	if err := json.Unmarshal(env.Payload, &text); err != nil {
		t.Fatal(err)
	}
	return text
}

func TestLoader_Stdin(t *testing.T) {
	l := NewLoader(nil, strings.NewReader("She swam to Paris."), 0)
	in, err := l.Load(context.Background(), "-")
	if err != nil {
		t.Fatal(err)
	}
	if in.Name != "-" || string(in.Data) != "She swam to Paris." {
		t.Errorf("unexpected input %+v", in)
	}
}

func TestLoader_PlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.lif")
	content := `{"discriminator":"` + protocol.DiscriminatorText + `","payload":"Hi."}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	in, err := NewLoader(nil, nil, 0).Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if string(in.Data) != content {
		t.Errorf("file content changed: %q", in.Data)
	}
}

func TestLoader_XZFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt.xz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w, err := xz.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("Mary loves John.")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	in, err := NewLoader(nil, nil, 0).Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if string(in.Data) != "Mary loves John." {
		t.Errorf("unexpected decompressed data %q", in.Data)
	}
}

func TestLoader_HTMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	page := `<html><head><title>T</title><script>var x = 1;</script></head>
<body><h1>Heading</h1><p>She swam   to Paris.</p><p>Mary loves John.</p></body></html>`
	if err := os.WriteFile(path, []byte(page), 0644); err != nil {
		t.Fatal(err)
	}

	in, err := NewLoader(nil, nil, 0).Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Heading\n\nShe swam to Paris.\n\nMary loves John."
	if got := textPayload(t, in.Data); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoader_OversizeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.lif")
	content := `{"discriminator":"` + protocol.DiscriminatorText + `","payload":"` + strings.Repeat("Mary loves John. ", 30) + `"}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewLoader(nil, nil, 200).Load(context.Background(), path)
	if !errors.Is(err, ErrInputTooLarge) {
		t.Fatalf("expected ErrInputTooLarge, got %v", err)
	}

	in, err := NewLoader(nil, nil, int64(len(content))).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("input at the limit rejected: %v", err)
	}
	if string(in.Data) != content {
		t.Error("input at the limit was changed")
	}
}

func TestLoader_OversizeXZ(t *testing.T) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(strings.Repeat("She swam to Paris. ", 100))); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "big.txt.xz")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewLoader(nil, nil, 100).Load(context.Background(), path); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("expected ErrInputTooLarge for decompressed size, got %v", err)
	}
}

func TestLoader_OversizeStdin(t *testing.T) {
	l := NewLoader(nil, strings.NewReader("She swam to Paris."), 5)
	if _, err := l.Load(context.Background(), "-"); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("expected ErrInputTooLarge, got %v", err)
	}
}

func TestLoader_MissingFile(t *testing.T) {
	if _, err := NewLoader(nil, nil, 0).Load(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoader_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = fmt.Fprint(w, "<p>Sally is his wife.</p>")
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, `{"discriminator":"x"}`)
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, false, "", "", "")
	l := NewLoader(fetcher, nil, 0)

	in, err := l.Load(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatal(err)
	}
	if got := textPayload(t, in.Data); got != "Sally is his wife." {
		t.Errorf("unexpected page text %q", got)
	}

	in, err = l.Load(context.Background(), server.URL+"/doc.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(in.Data) != `{"discriminator":"x"}` {
		t.Errorf("non-HTML body should pass through, got %q", in.Data)
	}

	if _, err := NewLoader(nil, nil, 0).Load(context.Background(), server.URL); err == nil {
		t.Error("expected error when URLs are not enabled")
	}
}
