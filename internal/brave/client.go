package brave

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"insight/backend/internal/config"
)

const (
	maxErrorBodyBytes = 8 * 1024
	maxQueryWords     = 50
	defaultCount      = 5
)

var ErrMissingAPIKey = errors.New("brave api key is not configured")

// APIError is a non-2xx answer. Code and Detail come from Brave's
// ErrorResponse envelope when the body carries one.
type APIError struct {
	StatusCode int
	Code       string
	Detail     string
	Body       string
}

func (e APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("brave returned %d (%s): %s", e.StatusCode, e.Code, e.Detail)
	}
	return fmt.Sprintf("brave returned %d: %s", e.StatusCode, e.Body)
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

type webSearchResponse struct {
	Web struct {
		Results []webResult `json:"results"`
	} `json:"web"`
}

type webResult struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	ExtraSnippets []string `json:"extra_snippets"`
}

type errorResponse struct {
	Error struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"error"`
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

// Search returns up to count web results in ranking order. Links that differ
// only by fragment or trailing slash count as one source.
func (c Client) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	words := strings.Fields(query)
	if len(words) == 0 {
		return nil, nil
	}
	if len(words) > maxQueryWords {
		words = words[:maxQueryWords]
	}
	if count <= 0 {
		count = defaultCount
	}

	req, err := c.newSearchRequest(ctx, strings.Join(words, " "), count)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request brave: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, readAPIError(resp)
	}

	var payload webSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode brave response: %w", err)
	}
	return collectResults(payload.Web.Results, count), nil
}

func (c Client) newSearchRequest(ctx context.Context, query string, count int) (*http.Request, error) {
	params := url.Values{
		"q":                {query},
		"count":            {strconv.Itoa(count)},
		"result_filter":    {"web"},
		"spellcheck":       {"0"},
		"text_decorations": {"0"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/web/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build brave request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)
	return req, nil
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	apiErr := APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	var envelope errorResponse
	if json.Unmarshal(body, &envelope) == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Detail = strings.TrimSpace(envelope.Error.Detail)
	}
	return apiErr
}

func collectResults(items []webResult, count int) []Result {
	out := make([]Result, 0, min(len(items), count))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if len(out) == count {
			break
		}
		link := strings.TrimSpace(item.URL)
		key := sourceKey(link)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Result{
			Title:   cmp.Or(strings.TrimSpace(item.Title), link),
			Link:    link,
			Snippet: summarize(item),
		})
	}
	return out
}

// sourceKey identifies a page independent of fragment and trailing slash.
func sourceKey(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// summarize prefers the description and otherwise joins the extra snippets.
func summarize(item webResult) string {
	if desc := strings.TrimSpace(item.Description); desc != "" {
		return desc
	}
	parts := make([]string, 0, len(item.ExtraSnippets))
	for _, extra := range item.ExtraSnippets {
		if s := strings.TrimSpace(extra); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
