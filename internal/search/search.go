// Package search selects and builds the web search provider used to augment
// research reports.
package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"insight/backend/internal/brave"
	"insight/backend/internal/config"
	"insight/backend/internal/research"
	"insight/backend/internal/serpapi"
)

const (
	KindSerpAPI = "serpapi"
	KindBrave   = "brave"
	KindGoogle  = "google"
	KindMock    = "mock"
)

// New returns the provider described by cfg. An empty credential always
// selects the mock provider, whatever the configured kind.
func New(ctx context.Context, cfg config.SearchProviderConfig, httpClient *http.Client) (research.Searcher, error) {
	var provider research.Searcher
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))

	switch {
	case strings.TrimSpace(cfg.Credential) == "":
		kind = KindMock
		provider = MockProvider{}
	case kind == KindSerpAPI || kind == "":
		kind = KindSerpAPI
		provider = SerpAPIProvider{client: serpapi.NewClient(cfg, httpClient)}
	case kind == KindBrave:
		provider = BraveProvider{client: brave.NewClient(cfg, httpClient)}
	case kind == KindGoogle:
		google, err := NewGoogleProvider(ctx, cfg, httpClient)
		if err != nil {
			return nil, err
		}
		provider = google
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Kind)
	}

	log.Info().Str("provider", kind).Dur("min_interval", cfg.MinInterval).Msg("web search provider selected")
	if kind == KindMock {
		return provider, nil
	}
	return NewRateLimited(provider, cfg.MinInterval), nil
}

// MockProvider returns two fixed results without touching the network.
type MockProvider struct{}

func (MockProvider) Search(_ context.Context, query string) ([]research.SearchResult, error) {
	return []research.SearchResult{
		{
			Title:   "Mock Search Result 1",
			Link:    "https://example.com/result1",
			Snippet: "This is a mock search result snippet for the query: " + query,
		},
		{
			Title:   "Mock Search Result 2",
			Link:    "https://example.com/result2",
			Snippet: "Another mock result to show how web search integrates with the research.",
		},
	}, nil
}

type SerpAPIProvider struct {
	client serpapi.Client
}

func (p SerpAPIProvider) Search(ctx context.Context, query string) ([]research.SearchResult, error) {
	results, err := p.client.Search(ctx, query, research.MaxSearchResults)
	if err != nil {
		return nil, err
	}
	out := make([]research.SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, research.SearchResult{Title: r.Title, Link: r.Link, Snippet: r.Snippet})
	}
	return out, nil
}

type BraveProvider struct {
	client brave.Client
}

func (p BraveProvider) Search(ctx context.Context, query string) ([]research.SearchResult, error) {
	results, err := p.client.Search(ctx, query, research.MaxSearchResults)
	if err != nil {
		return nil, err
	}
	out := make([]research.SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, research.SearchResult{Title: r.Title, Link: r.Link, Snippet: r.Snippet})
	}
	return out, nil
}
