package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ppiankov/relmark/internal/annotate"
	"github.com/ppiankov/relmark/internal/cache"
	"github.com/ppiankov/relmark/internal/llm"
	"github.com/ppiankov/relmark/internal/model"
	"github.com/ppiankov/relmark/internal/pipeline"
	"github.com/ppiankov/relmark/internal/protocol"
)

// app bundles the collaborators every command builds from config
type app struct {
	cfg      *model.Config
	service  *protocol.Service
	pipeline *pipeline.Pipeline
	loader   *pipeline.Loader
	logger   *slog.Logger
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return buildApp(cfg, slog.Default())
}

func buildApp(cfg *model.Config, logger *slog.Logger) (*app, error) {
	service, err := buildService(cfg, logger)
	if err != nil {
		return nil, err
	}

	c := cache.New(cfg.Cache)
	p := pipeline.NewPipeline(service,
		pipeline.WithCache(c, cfg.Cache.DiskTTL, fingerprint(cfg)),
		pipeline.WithLogger(logger))

	fetcher := pipeline.NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes,
		cfg.HTTP.RespectRobots, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, os.Getenv("NO_PROXY"))

	return &app{
		cfg:      cfg,
		service:  service,
		pipeline: p,
		loader:   pipeline.NewLoader(fetcher, os.Stdin, cfg.HTTP.MaxBodyBytes),
		logger:   logger,
	}, nil
}

func buildService(cfg *model.Config, logger *slog.Logger) (*protocol.Service, error) {
	opts := []annotate.Option{
		annotate.WithPolicy(annotate.Policy{
			StringifyArguments: cfg.Annotate.StringifyArguments,
			MarkableTargets:    cfg.Annotate.MarkableTargets,
		}),
		annotate.WithProducer(cfg.Producer.Identity()),
		annotate.WithLogger(logger),
	}

	switch strings.ToLower(cfg.Annotate.Extractor) {
	case "", "pattern":
	case "openai", "ollama":
		llmCfg := llm.ConfigFromModel(cfg.LLM, cfg.HTTP)
		llmCfg.Provider = cfg.Annotate.Extractor
		llmCfg.NoProxy = os.Getenv("NO_PROXY")
		extractor, err := llm.NewExtractorFromConfig(llmCfg)
		if err != nil {
			return nil, fmt.Errorf("configure extractor: %w", err)
		}
		opts = append(opts, annotate.WithExtractor(extractor.WithLogger(logger)))
	default:
		return nil, fmt.Errorf("unknown extractor: %s (supported: pattern, openai, ollama)", cfg.Annotate.Extractor)
	}

	return protocol.NewService(annotate.New(opts...),
		protocol.WithLanguage(cfg.Producer.Language),
		protocol.WithStrictDocuments(cfg.Protocol.StrictDocuments),
		protocol.WithMetadata(protocol.NewMetadata(cfg.Producer)),
		protocol.WithLogger(logger),
	), nil
}

// fingerprint identifies every setting that changes output, so cached envelopes stay valid
func fingerprint(cfg *model.Config) string {
	parts := []string{
		cfg.Producer.Identity(),
		cfg.Producer.Language,
		cfg.Annotate.Extractor,
		strconv.FormatBool(cfg.Annotate.StringifyArguments),
		strconv.FormatBool(cfg.Annotate.MarkableTargets),
		strconv.FormatBool(cfg.Protocol.StrictDocuments),
	}
	if cfg.Annotate.Extractor != "" && cfg.Annotate.Extractor != "pattern" {
		parts = append(parts, cfg.LLM.Model, cfg.LLM.BaseURL)
	}
	return strings.Join(parts, "|")
}
