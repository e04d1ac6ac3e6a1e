package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/relmark/internal/annotate"
	"github.com/ppiankov/relmark/internal/model"
	"github.com/ppiankov/relmark/internal/pipeline"
	"github.com/ppiankov/relmark/internal/protocol"
)

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	svc := protocol.NewService(annotate.New())
	srv := New(pipeline.NewPipeline(svc), protocol.NewMetadata(model.DefaultConfig().Producer), opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func decodeEnvelope(t *testing.T, resp *http.Response) protocol.Envelope {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var env protocol.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestExecute_Text(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/execute", "application/json",
		strings.NewReader(`{"discriminator":"http://vocab.lappsgrid.org/ns/media/text","payload":"She swam to Paris."}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contentTypeJSON, resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	env := decodeEnvelope(t, resp)
	assert.Equal(t, protocol.DiscriminatorLIF, env.Discriminator)

	var doc model.Document
	require.NoError(t, json.Unmarshal(env.Payload, &doc))
	assert.Equal(t, "She swam to Paris.", doc.Text())
	require.Len(t, doc.Views(), 1)
	assert.Len(t, doc.Views()[0].OfType(model.TypeGenericRelation), 1)
}

func TestExecute_ErrorEnvelopeIsOK(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/execute", "application/json",
		strings.NewReader(`{"discriminator":"http://example.com/unknown","payload":1}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, protocol.DiscriminatorError, env.Discriminator)

	var msg string
	require.NoError(t, json.Unmarshal(env.Payload, &msg))
	assert.True(t, strings.HasPrefix(msg, "Error processing input: unsupported discriminator type"), msg)
}

func TestExecute_BodyTooLarge(t *testing.T) {
	ts := newTestServer(t, WithMaxBodySize(16))

	resp, err := http.Post(ts.URL+"/execute", "text/plain", strings.NewReader(strings.Repeat("a", 64)))
	require.NoError(t, err)

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, protocol.DiscriminatorError, env.Discriminator)
}

func TestExecute_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/execute")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestExecute_RateLimited(t *testing.T) {
	ts := newTestServer(t, WithRateLimit(0.001, 1))

	post := func() int {
		resp, err := http.Post(ts.URL+"/execute", "text/plain", strings.NewReader("Mary loves John."))
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusTooManyRequests, post())
}

func TestRequestID_Propagated(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "abc-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc-123", resp.Header.Get(requestIDHeader))
}

func TestMetadata(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metadata")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, protocol.DiscriminatorMeta, env.Discriminator)

	var meta protocol.Metadata
	require.NoError(t, json.Unmarshal(env.Payload, &meta))
	assert.Equal(t, "relmark", meta.Name)
}

func TestSchemaAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/schema")
	require.NoError(t, err)
	var schemaDoc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&schemaDoc))
	_ = resp.Body.Close()
	assert.Contains(t, schemaDoc, "$schema")

	// Generate one execution so the series exist
	resp, err = http.Post(ts.URL+"/execute", "text/plain", strings.NewReader("Mary loves John."))
	require.NoError(t, err)
	_ = resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var sb strings.Builder
	_, err = io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, sb.String(), `relmark_http_requests_total{code="200",route="/execute"}`)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	svc := protocol.NewService(annotate.New())
	srv := New(pipeline.NewPipeline(svc), protocol.NewMetadata(model.DefaultConfig().Producer), WithRateLimit(10, 5))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestClientKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "10.1.2.3", clientKey(r))

	r.RemoteAddr = "bogus"
	assert.Equal(t, "bogus", clientKey(r))
}
