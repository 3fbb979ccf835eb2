package serpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"insight/backend/internal/config"
)

func TestSearchMapsOrganicResultsInOrder(t *testing.T) {
	var receivedPath, receivedQuery, receivedEngine, receivedKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		receivedQuery = r.URL.Query().Get("q")
		receivedEngine = r.URL.Query().Get("engine")
		receivedKey = r.URL.Query().Get("api_key")

		var items []string
		for i := 1; i <= 7; i++ {
			items = append(items, fmt.Sprintf(`{"position":%d,"title":"Result %d","link":"https://example.org/%d","snippet":"Snippet %d"}`, i, i, i, i))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organic_results":[` + strings.Join(items, ",") + `]}`))
	}))
	defer server.Close()

	client := NewClient(config.SearchProviderConfig{Credential: "serp-key", BaseURL: server.URL}, server.Client())
	results, err := client.Search(context.Background(), "microplastics marine ecosystems", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if receivedPath != "/search.json" {
		t.Fatalf("unexpected path: %s", receivedPath)
	}
	if receivedQuery != "microplastics marine ecosystems" || receivedEngine != "google" || receivedKey != "serp-key" {
		t.Fatalf("unexpected params q=%q engine=%q key=%q", receivedQuery, receivedEngine, receivedKey)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for i, result := range results {
		want := fmt.Sprintf("https://example.org/%d", i+1)
		if result.Link != want {
			t.Fatalf("result %d: expected %s, got %s", i, want, result.Link)
		}
	}
}

func TestSearchReturnsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Invalid API key. Your API key should be here: https://serpapi.com/manage-api-key"}`))
	}))
	defer server.Close()

	client := NewClient(config.SearchProviderConfig{Credential: "bad", BaseURL: server.URL}, server.Client())
	_, err := client.Search(context.Background(), "q", 5)

	var providerErr ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if !strings.Contains(providerErr.Message, "Invalid API key") {
		t.Fatalf("unexpected message: %q", providerErr.Message)
	}
}

func TestSearchReturnsProviderErrorOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"Your account has run out of searches."}`))
	}))
	defer server.Close()

	client := NewClient(config.SearchProviderConfig{Credential: "k", BaseURL: server.URL}, server.Client())
	_, err := client.Search(context.Background(), "q", 5)

	var providerErr ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

func TestSearchReturnsAPIErrorForOpaqueFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client := NewClient(config.SearchProviderConfig{Credential: "k", BaseURL: server.URL}, server.Client())
	_, err := client.Search(context.Background(), "q", 5)

	var apiErr APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected APIError 502, got %v", err)
	}
}

func TestSearchRedactsKeyFromTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := NewClient(config.SearchProviderConfig{Credential: "secret-key", BaseURL: baseURL}, nil)
	_, err := client.Search(context.Background(), "q", 5)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Fatalf("api key leaked into error: %v", err)
	}
}

func TestSearchReturnsErrMissingAPIKey(t *testing.T) {
	client := NewClient(config.SearchProviderConfig{BaseURL: "https://serpapi.com"}, nil)
	if _, err := client.Search(context.Background(), "q", 5); err != ErrMissingAPIKey {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
