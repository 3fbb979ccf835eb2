package research

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultMockFetchDelay = 1500 * time.Millisecond
	defaultMaxSources     = 5
	maxSourceExcerptRunes = 4_000

	noNewInformation = "No new information was found: none of the sources are web addresses that can be checked for updates."
)

// MockFetcher simulates polling sources for new material. After Delay it
// returns one of three canned notices chosen uniformly at random.
type MockFetcher struct {
	Delay time.Duration
	pick  func(n int) int
	now   func() time.Time
}

func NewMockFetcher(delay time.Duration) MockFetcher {
	if delay < 0 {
		delay = defaultMockFetchDelay
	}
	return MockFetcher{Delay: delay, pick: rand.IntN, now: time.Now}
}

var mockUpdateTemplates = []func(question, date string, sourceURLs []string) string{
	func(question, date string, _ []string) string {
		return fmt.Sprintf("A new study published on %s provides groundbreaking insights into topics related to \"%s\". The findings challenge previous assumptions.", date, question)
	},
	func(question, _ string, _ []string) string {
		return fmt.Sprintf("Recent developments in the field show an emerging trend that directly impacts the conclusions of your research on \"%s\".", question)
	},
	func(_, _ string, sourceURLs []string) string {
		return fmt.Sprintf("An expert opinion piece was just released, offering a fresh perspective that was not available when the initial sources (%s) were analyzed.", strings.Join(sourceURLs, ", "))
	},
}

func (f MockFetcher) Fetch(ctx context.Context, question string, sourceURLs []string) (string, error) {
	log.Debug().Str("stage", string(StageFetch)).Int("sources", len(sourceURLs)).Msg("simulating source refresh")

	if f.Delay > 0 {
		timer := time.NewTimer(f.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	pick := f.pick
	if pick == nil {
		pick = rand.IntN
	}
	now := f.now
	if now == nil {
		now = time.Now
	}
	template := mockUpdateTemplates[pick(len(mockUpdateTemplates))]
	return template(question, now().Format("1/2/2006"), sourceURLs), nil
}

// SourceReader reads one web source. *HTTPReader satisfies it.
type SourceReader interface {
	Read(ctx context.Context, rawURL string) (ReadResult, error)
}

// HTTPFetcher re-reads the web sources behind a report and returns what they
// currently say. Non-URL sources such as document filenames are skipped.
type HTTPFetcher struct {
	reader     SourceReader
	maxSources int
}

func NewHTTPFetcher(reader SourceReader, maxSources int) HTTPFetcher {
	if maxSources <= 0 {
		maxSources = defaultMaxSources
	}
	return HTTPFetcher{reader: reader, maxSources: maxSources}
}

func (f HTTPFetcher) Fetch(ctx context.Context, question string, sourceURLs []string) (string, error) {
	urls := selectWebSources(sourceURLs, f.maxSources)
	if len(urls) == 0 {
		return noNewInformation, nil
	}

	var b strings.Builder
	var failures []error
	read := 0
	for _, rawURL := range urls {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		result, err := f.reader.Read(ctx, rawURL)
		if err != nil {
			log.Warn().Err(err).Str("url", rawURL).Str("reason", classifyReadFailure(err, result)).Msg("refresh source read failed")
			failures = append(failures, fmt.Errorf("%s: %w", rawURL, err))
			continue
		}
		read++
		label := result.Title
		if label == "" {
			label = result.FinalURL
		}
		fmt.Fprintf(&b, "Source: %s (%s), retrieved %s\n", label, result.FinalURL, result.FetchedAt.Format(time.RFC3339))
		b.WriteString(trimToRunes(result.Text, maxSourceExcerptRunes))
		b.WriteString("\n\n")
	}

	if read == 0 {
		return "", errors.Join(failures...)
	}
	log.Info().Str("stage", string(StageFetch)).Int("read", read).Int("failed", len(failures)).Msg("refresh sources read")
	return strings.TrimSpace(fmt.Sprintf("Current content of the sources behind the answer to %q:\n\n%s", question, b.String())), nil
}

func selectWebSources(sources []string, limit int) []string {
	seen := make(map[string]struct{}, len(sources))
	out := make([]string, 0, min(len(sources), limit))
	for _, source := range sources {
		trimmed := strings.TrimSpace(source)
		if !isHTTPURL(trimmed) {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
		if len(out) >= limit {
			break
		}
	}
	return out
}
