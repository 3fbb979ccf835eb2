// Package app assembles the research pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"insight/backend/internal/config"
	"insight/backend/internal/openrouter"
	"insight/backend/internal/research"
	"insight/backend/internal/search"
)

const extractTimeout = 60 * time.Second

// Services holds the long-lived pipeline components shared by the HTTP API
// and the CLI.
type Services struct {
	Synthesizer *research.Synthesizer
	Refresher   *research.Refresher
	Limits      research.Limits
}

func New(ctx context.Context, cfg config.Config, httpClient *http.Client) (*Services, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	searcher, err := search.New(ctx, cfg.SearchProvider(), httpClient)
	if err != nil {
		return nil, fmt.Errorf("configure search provider: %w", err)
	}

	model := NewOpenRouterModel(openrouter.NewClient(cfg, httpClient), cfg.OpenRouterModel, cfg.ReasoningEffort)

	synthesizer, err := research.NewSynthesizer(research.NewPDFExtractor(), searcher, model, research.SynthesizerConfig{
		Timeouts: research.Timeouts{
			Extract: extractTimeout,
			Search:  cfg.SearchTimeout,
			Model:   cfg.ModelTimeout,
		},
		SchemaRetries: cfg.ModelSchemaRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("build synthesizer: %w", err)
	}

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	refresher, err := research.NewRefresher(fetcher, model, research.RefresherConfig{
		Timeouts: research.Timeouts{
			Fetch: cfg.RefreshFetchTimeout,
			Model: cfg.ModelTimeout,
		},
		SchemaRetries: cfg.ModelSchemaRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("build refresher: %w", err)
	}

	if cfg.OpenRouterAPIKey == "" {
		log.Warn().Msg("OPENROUTER_API_KEY is not set; model calls will fail")
	}

	return &Services{
		Synthesizer: synthesizer,
		Refresher:   refresher,
		Limits: research.Limits{
			MinQuestionChars: cfg.MinQuestionChars,
			MaxDocuments:     cfg.MaxDocuments,
			MaxDocumentBytes: cfg.MaxUploadBytes,
		},
	}, nil
}

func newFetcher(cfg config.Config) (research.Fetcher, error) {
	switch cfg.RefreshFetcher {
	case "", "mock":
		log.Info().Str("fetcher", "mock").Dur("delay", cfg.RefreshMockDelay).Msg("refresh fetcher selected")
		return research.NewMockFetcher(cfg.RefreshMockDelay), nil
	case "http":
		log.Info().Str("fetcher", "http").Int("max_sources", cfg.RefreshMaxSources).Msg("refresh fetcher selected")
		reader := research.NewHTTPReader(research.ReaderConfig{}, nil)
		return research.NewHTTPFetcher(reader, cfg.RefreshMaxSources), nil
	default:
		return nil, fmt.Errorf("unknown refresh fetcher %q", cfg.RefreshFetcher)
	}
}
