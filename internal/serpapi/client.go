package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"insight/backend/internal/config"
)

const (
	maxErrorBodyBytes = 8 * 1024
	searchEngine      = "google"
)

var ErrMissingAPIKey = errors.New("serpapi key is not configured")

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e APIError) Error() string {
	return fmt.Sprintf("serpapi returned %d: %s", e.StatusCode, e.Body)
}

// ProviderError is an error reported inside an otherwise successful response.
type ProviderError struct {
	Message string
}

func (e ProviderError) Error() string {
	return "serpapi: " + e.Message
}

type Result struct {
	Title   string
	Link    string
	Snippet string
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type searchAPIResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
	} `json:"organic_results"`
}

func NewClient(cfg config.SearchProviderConfig, httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return Client{
		apiKey:     strings.TrimSpace(cfg.Credential),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: httpClient,
	}
}

// Search runs a Google query through SerpAPI and returns at most limit
// organic results in provider order.
func (c Client) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	endpoint, err := url.Parse(c.baseURL + "/search.json")
	if err != nil {
		return nil, fmt.Errorf("parse serpapi endpoint: %w", err)
	}
	params := endpoint.Query()
	params.Set("q", query)
	params.Set("engine", searchEngine)
	params.Set("api_key", c.apiKey)
	endpoint.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build serpapi request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request serpapi: %w", redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		var parsed searchAPIResponse
		if json.Unmarshal(body, &parsed) == nil && strings.TrimSpace(parsed.Error) != "" {
			return nil, ProviderError{Message: strings.TrimSpace(parsed.Error)}
		}
		return nil, APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var parsed searchAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode serpapi response: %w", err)
	}
	if msg := strings.TrimSpace(parsed.Error); msg != "" {
		return nil, ProviderError{Message: msg}
	}

	if limit <= 0 || limit > len(parsed.OrganicResults) {
		limit = len(parsed.OrganicResults)
	}
	results := make([]Result, 0, limit)
	for _, item := range parsed.OrganicResults[:limit] {
		results = append(results, Result{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}

type redactedError struct {
	msg string
	err error
}

func (e redactedError) Error() string { return e.msg }
func (e redactedError) Unwrap() error { return e.err }

// redactKey strips the api key from transport errors, which embed the request URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return redactedError{msg: strings.ReplaceAll(err.Error(), key, "REDACTED"), err: err}
}
