package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultPort                = "8080"
	defaultEnvironment         = "development"
	defaultLogLevel            = "info"
	defaultAllowedOrigins      = "http://localhost:3000,http://localhost:9002"
	defaultOpenRouterBaseURL   = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel     = "google/gemini-2.5-flash"
	defaultModelTimeoutSecs    = 90
	defaultModelSchemaRetries  = 1
	defaultSearchProvider      = "serpapi"
	defaultSerpAPIBaseURL      = "https://serpapi.com"
	defaultBraveBaseURL        = "https://api.search.brave.com/res/v1"
	defaultSearchTimeoutSecs   = 20
	defaultRefreshFetcher      = "mock"
	defaultRefreshMockDelayMS  = 1500
	defaultRefreshTimeoutSecs  = 12
	defaultRefreshMaxSources   = 5
	defaultMaxUploadMB         = 20
	defaultMaxDocuments        = 10
	defaultMinQuestionChars    = 10
	configPathEnv              = "RESEARCH_CONFIG"
	searchProviderSerpAPI      = "serpapi"
	searchProviderBrave        = "brave"
	searchProviderGoogle       = "google"
	refreshFetcherMock         = "mock"
	refreshFetcherHTTP         = "http"
)

type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string

	OpenRouterAPIKey   string
	OpenRouterBaseURL  string
	OpenRouterModel    string
	// ReasoningEffort is sent as OpenRouter's reasoning.effort when set.
	ReasoningEffort    string
	ModelTimeout       time.Duration
	ModelSchemaRetries int

	SearchProviderKind   string
	SerpAPIKey           string
	SerpAPIBaseURL       string
	BraveAPIKey          string
	BraveBaseURL         string
	GoogleSearchAPIKey   string
	GoogleSearchEngineID string
	SearchTimeout        time.Duration
	SearchMinInterval    time.Duration

	RefreshFetcher      string
	RefreshMockDelay    time.Duration
	RefreshFetchTimeout time.Duration
	RefreshMaxSources   int

	MaxUploadBytes   int64
	MaxDocuments     int
	MinQuestionChars int
}

// SearchProviderConfig selects the web search backend. An empty Credential
// means the deterministic mock provider is used.
type SearchProviderConfig struct {
	Kind        string
	Credential  string
	EngineID    string
	BaseURL     string
	MinInterval time.Duration
}

func (c Config) ListenAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) IsDevelopment() bool {
	return c.Environment == defaultEnvironment
}

func (c Config) SearchProvider() SearchProviderConfig {
	out := SearchProviderConfig{Kind: c.SearchProviderKind, MinInterval: c.SearchMinInterval}
	switch c.SearchProviderKind {
	case searchProviderBrave:
		out.Credential = c.BraveAPIKey
		out.BaseURL = c.BraveBaseURL
	case searchProviderGoogle:
		out.Credential = c.GoogleSearchAPIKey
		out.EngineID = c.GoogleSearchEngineID
	default:
		out.Credential = c.SerpAPIKey
		out.BaseURL = c.SerpAPIBaseURL
	}
	return out
}

// Load reads configuration from the environment, merged over the YAML file
// named by RESEARCH_CONFIG when it is set.
func Load() (Config, error) {
	return LoadFile(strings.TrimSpace(os.Getenv(configPathEnv)))
}

func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := Config{
		Port:        stringValue(v, "port"),
		Environment: strings.ToLower(stringValue(v, "app_env")),
		LogLevel:    strings.ToLower(stringValue(v, "log_level")),
		LogFormat:   strings.ToLower(stringValue(v, "log_format")),

		OpenRouterAPIKey:   stringValue(v, "openrouter_api_key"),
		OpenRouterBaseURL:  strings.TrimRight(stringValue(v, "openrouter_base_url"), "/"),
		OpenRouterModel:    stringValue(v, "openrouter_model"),
		ReasoningEffort:    strings.ToLower(stringValue(v, "openrouter_reasoning_effort")),
		ModelTimeout:       time.Duration(v.GetInt("model_timeout_seconds")) * time.Second,
		ModelSchemaRetries: v.GetInt("model_schema_retries"),

		SearchProviderKind:   strings.ToLower(stringValue(v, "search_provider")),
		SerpAPIKey:           stringValue(v, "serpapi_key"),
		SerpAPIBaseURL:       strings.TrimRight(stringValue(v, "serpapi_base_url"), "/"),
		BraveAPIKey:          stringValue(v, "brave_api_key"),
		BraveBaseURL:         strings.TrimRight(stringValue(v, "brave_base_url"), "/"),
		GoogleSearchAPIKey:   stringValue(v, "google_search_api_key"),
		GoogleSearchEngineID: stringValue(v, "google_search_engine_id"),
		SearchTimeout:        time.Duration(v.GetInt("search_timeout_seconds")) * time.Second,
		SearchMinInterval:    time.Duration(v.GetInt("search_min_interval_ms")) * time.Millisecond,

		RefreshFetcher:      strings.ToLower(stringValue(v, "refresh_fetcher")),
		RefreshMockDelay:    time.Duration(v.GetInt("refresh_mock_delay_ms")) * time.Millisecond,
		RefreshFetchTimeout: time.Duration(v.GetInt("refresh_fetch_timeout_seconds")) * time.Second,
		RefreshMaxSources:   v.GetInt("refresh_max_sources"),

		MaxUploadBytes:   int64(v.GetInt("max_upload_mb")) * 1024 * 1024,
		MaxDocuments:     v.GetInt("max_documents"),
		MinQuestionChars: v.GetInt("min_question_chars"),
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
		if cfg.IsDevelopment() {
			cfg.LogFormat = "console"
		}
	}

	cfg.AllowedOrigins = parseList(stringValue(v, "cors_allowed_origins"))
	if len(cfg.AllowedOrigins) == 0 {
		return Config{}, errors.New("CORS_ALLOWED_ORIGINS must include at least one origin")
	}

	switch cfg.SearchProviderKind {
	case searchProviderSerpAPI, searchProviderBrave, searchProviderGoogle:
	default:
		return Config{}, fmt.Errorf("SEARCH_PROVIDER must be one of serpapi, brave, google (got %q)", cfg.SearchProviderKind)
	}
	if cfg.SearchProviderKind == searchProviderGoogle && cfg.GoogleSearchAPIKey != "" && cfg.GoogleSearchEngineID == "" {
		return Config{}, errors.New("GOOGLE_SEARCH_ENGINE_ID is required when GOOGLE_SEARCH_API_KEY is set")
	}

	switch cfg.ReasoningEffort {
	case "", "low", "medium", "high":
	default:
		return Config{}, fmt.Errorf("OPENROUTER_REASONING_EFFORT must be low, medium or high (got %q)", cfg.ReasoningEffort)
	}

	switch cfg.RefreshFetcher {
	case refreshFetcherMock, refreshFetcherHTTP:
	default:
		return Config{}, fmt.Errorf("REFRESH_FETCHER must be mock or http (got %q)", cfg.RefreshFetcher)
	}

	if cfg.ModelTimeout <= 0 {
		return Config{}, errors.New("MODEL_TIMEOUT_SECONDS must be > 0")
	}
	if cfg.SearchTimeout <= 0 {
		return Config{}, errors.New("SEARCH_TIMEOUT_SECONDS must be > 0")
	}
	if cfg.RefreshFetchTimeout <= 0 {
		return Config{}, errors.New("REFRESH_FETCH_TIMEOUT_SECONDS must be > 0")
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, errors.New("MAX_UPLOAD_MB must be > 0")
	}
	if cfg.MaxDocuments <= 0 {
		return Config{}, errors.New("MAX_DOCUMENTS must be > 0")
	}
	if cfg.MinQuestionChars <= 0 {
		return Config{}, errors.New("MIN_QUESTION_CHARS must be > 0")
	}
	if cfg.RefreshMaxSources <= 0 {
		cfg.RefreshMaxSources = defaultRefreshMaxSources
	}
	if cfg.ModelSchemaRetries < 0 {
		cfg.ModelSchemaRetries = 0
	}
	if cfg.SearchMinInterval < 0 {
		cfg.SearchMinInterval = 0
	}
	if cfg.RefreshMockDelay < 0 {
		cfg.RefreshMockDelay = 0
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", defaultPort)
	v.SetDefault("app_env", defaultEnvironment)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("log_format", "")
	v.SetDefault("cors_allowed_origins", defaultAllowedOrigins)
	v.SetDefault("openrouter_api_key", "")
	v.SetDefault("openrouter_base_url", defaultOpenRouterBaseURL)
	v.SetDefault("openrouter_model", defaultOpenRouterModel)
	v.SetDefault("openrouter_reasoning_effort", "")
	v.SetDefault("model_timeout_seconds", defaultModelTimeoutSecs)
	v.SetDefault("model_schema_retries", defaultModelSchemaRetries)
	v.SetDefault("search_provider", defaultSearchProvider)
	v.SetDefault("serpapi_key", "")
	v.SetDefault("serpapi_base_url", defaultSerpAPIBaseURL)
	v.SetDefault("brave_api_key", "")
	v.SetDefault("brave_base_url", defaultBraveBaseURL)
	v.SetDefault("google_search_api_key", "")
	v.SetDefault("google_search_engine_id", "")
	v.SetDefault("search_timeout_seconds", defaultSearchTimeoutSecs)
	v.SetDefault("search_min_interval_ms", 0)
	v.SetDefault("refresh_fetcher", defaultRefreshFetcher)
	v.SetDefault("refresh_mock_delay_ms", defaultRefreshMockDelayMS)
	v.SetDefault("refresh_fetch_timeout_seconds", defaultRefreshTimeoutSecs)
	v.SetDefault("refresh_max_sources", defaultRefreshMaxSources)
	v.SetDefault("max_upload_mb", defaultMaxUploadMB)
	v.SetDefault("max_documents", defaultMaxDocuments)
	v.SetDefault("min_question_chars", defaultMinQuestionChars)
}

func stringValue(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
