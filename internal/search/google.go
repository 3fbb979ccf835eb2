package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"insight/backend/internal/config"
	"insight/backend/internal/research"
)

// GoogleProvider queries a Programmable Search Engine through the Custom
// Search JSON API.
type GoogleProvider struct {
	service  *customsearch.Service
	engineID string
}

func NewGoogleProvider(ctx context.Context, cfg config.SearchProviderConfig, httpClient *http.Client) (*GoogleProvider, error) {
	engineID := strings.TrimSpace(cfg.EngineID)
	if engineID == "" {
		return nil, fmt.Errorf("google search requires an engine id")
	}

	apiKey := strings.TrimSpace(cfg.Credential)
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		opts = append(opts, option.WithEndpoint(base+"/"))
	}
	if httpClient != nil {
		// A caller-supplied client bypasses the option transport, so the key
		// has to ride on the client itself.
		keyed := *httpClient
		keyed.Transport = apiKeyTransport{key: apiKey, base: httpClient.Transport}
		opts = append(opts, option.WithHTTPClient(&keyed))
	}

	service, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create google custom search client: %w", err)
	}
	return &GoogleProvider{service: service, engineID: engineID}, nil
}

func (p *GoogleProvider) Search(ctx context.Context, query string) ([]research.SearchResult, error) {
	res, err := p.service.Cse.List().
		Cx(p.engineID).
		Q(query).
		Num(research.MaxSearchResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("google custom search: %w", err)
	}

	out := make([]research.SearchResult, 0, min(len(res.Items), research.MaxSearchResults))
	for _, item := range res.Items {
		if item == nil {
			continue
		}
		out = append(out, research.SearchResult{Title: item.Title, Link: item.Link, Snippet: item.Snippet})
		if len(out) == research.MaxSearchResults {
			break
		}
	}
	return out, nil
}

type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	clone := req.Clone(req.Context())
	query := clone.URL.Query()
	query.Set("key", t.key)
	clone.URL.RawQuery = query.Encode()
	return base.RoundTrip(clone)
}
