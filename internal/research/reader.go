package research

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultReaderTimeout    = 12 * time.Second
	defaultReaderRedirects  = 3
	defaultReaderMaxRunes   = 16_000
	defaultReaderUserAgent  = "insight-refresh-bot/1.0"
	defaultReaderMaxBodyCap = int64(1_500_000)
)

type ReaderConfig struct {
	RequestTimeout time.Duration
	MaxBytes       int64
	MaxRedirects   int
	MaxTextRunes   int
}

type ReadResult struct {
	URL         string
	FinalURL    string
	Title       string
	ContentType string
	Text        string
	FetchStatus string
	FetchedAt   time.Time
	Truncated   bool
}

// HTTPReader fetches public web pages and returns their text. Requests to
// private networks, odd ports and non-http schemes are refused, including
// across redirects.
type HTTPReader struct {
	cfg        ReaderConfig
	httpClient *http.Client
	now        func() time.Time
}

func NewHTTPReader(cfg ReaderConfig, httpClient *http.Client) *HTTPReader {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultReaderTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultReaderMaxBodyCap
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaultReaderRedirects
	}
	if cfg.MaxTextRunes <= 0 {
		cfg.MaxTextRunes = defaultReaderMaxRunes
	}

	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = secureDialContext(&net.Dialer{Timeout: cfg.RequestTimeout})
		httpClient = &http.Client{Transport: transport}
	}

	httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= cfg.MaxRedirects {
			return errors.New("too many redirects")
		}
		if _, err := validateSourceURL(req.URL.String()); err != nil {
			return err
		}
		return nil
	}

	return &HTTPReader{cfg: cfg, httpClient: httpClient, now: time.Now}
}

const readerAccept = "text/html,application/xhtml+xml,text/plain,text/markdown,application/json,application/pdf;q=0.9,*/*;q=0.2"

var errEmptyContent = errors.New("extracted content is empty")

func (r *HTTPReader) Read(ctx context.Context, rawURL string) (ReadResult, error) {
	target, err := validateSourceURL(rawURL)
	if err != nil {
		return ReadResult{URL: rawURL, FetchStatus: "blocked"}, err
	}
	result := ReadResult{URL: target.String(), FinalURL: target.String()}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	defer cancel()

	payload, err := r.fetch(ctx, &result)
	if err != nil {
		return result, err
	}

	result.Title, result.Text, err = extractContent(ctx, result.ContentType, payload, r.cfg.MaxTextRunes)
	switch {
	case errors.Is(err, errUnsupportedContentType):
		result.FetchStatus = "unsupported_content_type"
		return result, err
	case err != nil:
		return result, err
	case strings.TrimSpace(result.Text) == "":
		result.FetchStatus = "empty_content"
		return result, errEmptyContent
	}
	result.FetchStatus = "ok"
	return result, nil
}

// fetch performs the GET and fills the response metadata on result. The
// returned body is capped at MaxBytes.
func (r *HTTPReader) fetch(ctx context.Context, result *ReadResult) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, result.URL, nil)
	if err != nil {
		result.FetchStatus = "request_failed"
		return nil, err
	}
	req.Header.Set("User-Agent", defaultReaderUserAgent)
	req.Header.Set("Accept", readerAccept)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		result.FetchStatus = "fetch_failed"
		return nil, err
	}
	defer resp.Body.Close()

	result.FetchedAt = r.now().UTC()
	result.FetchStatus = "http_" + strconv.Itoa(resp.StatusCode)
	result.ContentType = mediaType(resp.Header.Get("Content-Type"))
	if resp.Request != nil && resp.Request.URL != nil {
		result.FinalURL = resp.Request.URL.String()
	}
	if resp.StatusCode/100 != 2 && resp.StatusCode/100 != 3 {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	limit := r.cfg.MaxBytes
	if limit <= 0 {
		limit = defaultReaderMaxBodyCap
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > limit {
		result.Truncated = true
		payload = payload[:limit]
	}
	return payload, nil
}

// mediaType drops parameters from a Content-Type header. Unknown types read
// as application/octet-stream.
func mediaType(header string) string {
	header = strings.TrimSpace(header)
	if parsed, _, err := mime.ParseMediaType(header); err == nil {
		return parsed
	}
	if header == "" {
		return "application/octet-stream"
	}
	return header
}

// classifyReadFailure buckets read errors for logging.
func classifyReadFailure(err error, result ReadResult) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, errBlockedURLHost) || errors.Is(err, errBlockedURLPort) || errors.Is(err, errInvalidURLScheme) {
		return "blocked_url"
	}
	if errors.Is(err, errUnsupportedContentType) {
		return "unsupported_content_type"
	}
	return cmp.Or(result.FetchStatus, "fetch_failed")
}
