package research

import (
	"context"
	"time"
)

const (
	MediaTypePDF = "application/pdf"

	// MaxSearchResults caps how many web results reach the synthesis prompt.
	MaxSearchResults = 5
)

// DocumentInput is one uploaded document. It is consumed once by an
// Extractor and discarded after its text is produced.
type DocumentInput struct {
	Filename  string
	MediaType string
	Data      []byte
}

type ExtractedDocument struct {
	Filename string
	Text     string
}

type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Report is the structured output of one research request.
type Report struct {
	KeyTakeaways []string `json:"keyTakeaways" jsonschema:"discrete key takeaways drawn from the documents and web results"`
	Summary      string   `json:"summary" jsonschema:"multi-paragraph synthesized summary of the findings"`
	Sources      []string `json:"sources" jsonschema:"every document filename and web result link actually used"`
}

type RefreshResult struct {
	UpdatedAnswer string `json:"updatedAnswer"`
	IsUpdated     bool   `json:"isUpdated"`
}

// refreshDecision is the model's structured verdict on new information.
type refreshDecision struct {
	NeedsUpdate   bool   `json:"needsUpdate" jsonschema:"true only when the new information materially changes the current answer"`
	UpdatedAnswer string `json:"updatedAnswer" jsonschema:"the revised answer when needsUpdate is true, otherwise an empty string"`
}

type Extractor interface {
	Extract(ctx context.Context, doc DocumentInput) (string, error)
}

type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, question string, sourceURLs []string) (string, error)
}

type Message struct {
	Role    string
	Content string
}

// OutputSchema constrains a model call to a named JSON schema.
type OutputSchema struct {
	Name   string
	Schema []byte
}

type ModelRequest struct {
	Messages []Message
	Schema   *OutputSchema
}

// Model is the opaque language model capability. Generate returns the raw
// completion text, which for schema-constrained calls should be JSON.
type Model interface {
	Generate(ctx context.Context, req ModelRequest) (string, error)
}

type Timeouts struct {
	Extract time.Duration
	Search  time.Duration
	Fetch   time.Duration
	Model   time.Duration
}
