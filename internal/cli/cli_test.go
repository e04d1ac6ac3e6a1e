package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/relmark/internal/model"
	"github.com/ppiankov/relmark/internal/nlp"
	"github.com/ppiankov/relmark/internal/protocol"
)

func testApp(t *testing.T, mutate func(*model.Config)) *app {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Batch.Workers = 2
	if mutate != nil {
		mutate(cfg)
	}
	a, err := buildApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return a
}

func TestAnnotateOne_File(t *testing.T) {
	a := testApp(t, nil)
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("She swam to Paris."), 0644))

	var out bytes.Buffer
	require.NoError(t, annotateOne(context.Background(), &out, a, path, ""))

	line := strings.TrimSuffix(out.String(), "\n")
	assert.NotContains(t, line, "\n")

	var env protocol.Envelope
	require.NoError(t, json.Unmarshal([]byte(line), &env))
	assert.Equal(t, protocol.DiscriminatorLIF, env.Discriminator)
}

func TestAnnotateOne_ErrorEnvelope(t *testing.T) {
	a := testApp(t, nil)
	path := filepath.Join(t.TempDir(), "bad.lif")
	require.NoError(t, os.WriteFile(path, []byte(`{"discriminator":"http://example.com/x","payload":1}`), 0644))

	outPath := filepath.Join(t.TempDir(), "out", "bad.lif")
	err := annotateOne(context.Background(), io.Discard, a, path, outPath)
	assert.True(t, errors.Is(err, errAnnotationFailed), "got %v", err)

	data, readErr := os.ReadFile(outPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), protocol.DiscriminatorError)
}

func TestAnnotateOne_UnreadableInput(t *testing.T) {
	a := testApp(t, nil)

	var out bytes.Buffer
	err := annotateOne(context.Background(), &out, a, filepath.Join(t.TempDir(), "missing.lif"), "")
	assert.True(t, errors.Is(err, errAnnotationFailed), "got %v", err)

	var env protocol.Envelope
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &env))
	assert.Equal(t, protocol.DiscriminatorError, env.Discriminator)

	var msg string
	require.NoError(t, json.Unmarshal(env.Payload, &msg))
	assert.True(t, strings.HasPrefix(msg, "Error processing input: open input"), msg)
}

func TestRunDirectory(t *testing.T) {
	a := testApp(t, nil)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lif"), []byte("Mary loves John."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".skip.lif"), []byte("Mary loves John."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("Mary loves John."), 0644))

	var stderr bytes.Buffer
	require.NoError(t, runDirectory(context.Background(), &stderr, a, dir, 2))
	assert.Contains(t, stderr.String(), "Batch Complete")

	runs, err := os.ReadDir(filepath.Join(dir, "rel"))
	require.NoError(t, err)
	require.Len(t, runs, 1)

	files, err := os.ReadDir(filepath.Join(dir, "rel", runs[0].Name()))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.lif", files[0].Name())
}

func TestBuildService_UnknownExtractor(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Annotate.Extractor = "magic"
	_, err := buildService(cfg, slog.Default())
	assert.Error(t, err)

	cfg.Annotate.Extractor = "openai"
	cfg.LLM.APIKey = ""
	_, err = buildService(cfg, slog.Default())
	assert.ErrorIs(t, err, nlp.ErrMissingModelResource, "openai without a key must fail")
}

func TestFingerprint(t *testing.T) {
	base := model.DefaultConfig()
	changed := model.DefaultConfig()
	changed.Annotate.StringifyArguments = true

	assert.NotEqual(t, fingerprint(base), fingerprint(changed))

	// LLM settings only matter for LLM extractors
	otherModel := model.DefaultConfig()
	otherModel.LLM.Model = "other"
	assert.Equal(t, fingerprint(base), fingerprint(otherModel))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/a/b?c=1", "example.com_a_b_c=1.lif"},
		{"docs/a.lif", "docs_a.lif"},
		{"../secret", "secret.lif"},
		{"", "input.lif"},
		{"my file.txt", "my-file.txt.lif"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}

func TestUniqueName(t *testing.T) {
	used := map[string]int{}
	assert.Equal(t, "a.lif", uniqueName(used, "a.lif"))
	assert.Equal(t, "a-2.lif", uniqueName(used, "a.lif"))
	assert.Equal(t, "b.lif", uniqueName(used, "b.lif"))
}

func TestFlatten(t *testing.T) {
	got := flatten("", map[string]any{
		"a": map[string]any{"b": 1, "c": map[string]any{"d": "x"}},
		"e": true,
	})
	assert.Equal(t, map[string]any{"a.b": 1, "a.c.d": "x", "e": true}, got)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("RELMARK_CACHE_ENABLED", "true")
	t.Setenv("RELMARK_ANNOTATE_STRINGIFY_ARGUMENTS", "true")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	registerDefaults(viper.GetViper())
	viper.SetEnvPrefix("RELMARK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Annotate.StringifyArguments)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, []string{"*.lif"}, cfg.Batch.Include)
	assert.Equal(t, model.DefaultConfig().HTTP.Timeout, cfg.HTTP.Timeout)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relmark", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg model.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, "relmark", cfg.Producer.Name)
	assert.Equal(t, "rel", cfg.Batch.OutputDir)

	assert.Error(t, writeDefaultConfig(path), "existing file must not be overwritten")
}

func TestVersion(t *testing.T) {
	old := version
	t.Cleanup(func() { version = old })

	version = "1.2.3"
	assert.Equal(t, "1.2.3", Version())

	version = ""
	assert.NotEmpty(t, Version())
}

func TestSchemaCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"schema"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), `"$schema"`)
}
