package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/ppiankov/relmark/internal/protocol"
)

// ErrInputTooLarge is returned when an input exceeds the configured byte limit
var ErrInputTooLarge = errors.New("input exceeds size limit")

// Input is one unit of work for the service
type Input struct {
	Name string // file name, "-" or URL
	Data []byte // raw protocol input
}

// Loader resolves a command line argument into protocol input
type Loader struct {
	fetcher  *Fetcher
	stdin    io.Reader
	maxBytes int64
}

// NewLoader creates a loader. fetcher may be nil, in which case URLs are rejected.
func NewLoader(fetcher *Fetcher, stdin io.Reader, maxBytes int64) *Loader {
	return &Loader{fetcher: fetcher, stdin: stdin, maxBytes: maxBytes}
}

// IsURL reports whether arg names an http(s) resource
func IsURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

// Load reads "-" from stdin, URLs through the fetcher and anything else from disk.
// ".xz" files are decompressed; HTML pages are reduced to their visible text.
func (l *Loader) Load(ctx context.Context, arg string) (*Input, error) {
	switch {
	case arg == "-":
		data, err := readLimited(l.stdin, l.maxBytes)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return &Input{Name: "-", Data: data}, nil

	case IsURL(arg):
		if l.fetcher == nil {
			return nil, fmt.Errorf("fetch %s: URL inputs are not enabled", arg)
		}
		res, err := l.fetcher.FetchWithRetry(ctx, arg)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", arg, err)
		}
		if res.IsHTML() {
			return htmlInput(arg, bytes.NewReader(res.Body))
		}
		return &Input{Name: arg, Data: res.Body}, nil

	default:
		return l.LoadFile(arg)
	}
}

// LoadFile reads one file from disk
func (l *Loader) LoadFile(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	name := path
	if strings.EqualFold(filepath.Ext(name), ".xz") {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open xz stream %s: %w", path, err)
		}
		r = xr
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	data, err := readLimited(r, l.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return htmlInput(path, bytes.NewReader(data))
	}
	return &Input{Name: path, Data: data}, nil
}

// readLimited reads r to the end, failing once more than max bytes arrive.
// A max of zero or less means no limit.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w (%d bytes)", ErrInputTooLarge, max)
	}
	return data, nil
}

// htmlInput wraps page text into a TEXT envelope so it is never mistaken for JSON
func htmlInput(name string, r io.Reader) (*Input, error) {
	text, err := HTMLText(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	data, err := TextEnvelope(text)
	if err != nil {
		return nil, err
	}
	return &Input{Name: name, Data: data}, nil
}

// TextEnvelope wraps text in a TEXT envelope
func TextEnvelope(text string) ([]byte, error) {
	payload, err := json.Marshal(text)
	if err != nil {
		return nil, fmt.Errorf("encode text: %w", err)
	}
	return json.Marshal(protocol.Envelope{
		Discriminator: protocol.DiscriminatorText,
		Payload:       payload,
	})
}
