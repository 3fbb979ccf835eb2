package research

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const reportSchemaName = "research_report"

type SynthesizerConfig struct {
	Timeouts      Timeouts
	SchemaRetries int
}

// Synthesizer turns a question and its documents into a Report: text
// extraction and web search run concurrently, then one schema-constrained
// model call writes the report.
type Synthesizer struct {
	extractor Extractor
	searcher  Searcher
	model     Model
	output    *structuredOutput[Report]
	cfg       SynthesizerConfig
}

func NewSynthesizer(extractor Extractor, searcher Searcher, model Model, cfg SynthesizerConfig) (*Synthesizer, error) {
	if extractor == nil || searcher == nil || model == nil {
		return nil, errors.New("synthesizer requires an extractor, a searcher and a model")
	}
	output, err := newStructuredOutput(reportSchemaName, tuneReportSchema, checkReport)
	if err != nil {
		return nil, err
	}
	return &Synthesizer{
		extractor: extractor,
		searcher:  searcher,
		model:     model,
		output:    output,
		cfg:       cfg,
	}, nil
}

func tuneReportSchema(schema *jsonschema.Schema) {
	one := 1
	if prop, ok := schema.Properties["keyTakeaways"]; ok {
		prop.MinItems = &one
	}
	if prop, ok := schema.Properties["summary"]; ok {
		prop.MinLength = &one
	}
}

func checkReport(report Report) error {
	if len(report.KeyTakeaways) == 0 {
		return errors.New("keyTakeaways must contain at least one entry")
	}
	if strings.TrimSpace(report.Summary) == "" {
		return errors.New("summary must not be blank")
	}
	return nil
}

// Synthesize runs the full pipeline. Any extraction, search or model failure
// fails the whole request; no partial report is produced.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, documents []DocumentInput) (Report, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Report{}, &ValidationError{Field: "question", Message: msgQuestionTooShort}
	}
	if len(documents) == 0 {
		return Report{}, &ValidationError{Field: "files", Message: msgNoDocuments}
	}

	started := time.Now()
	extracted := make([]ExtractedDocument, len(documents))
	var results []SearchResult

	g, gctx := errgroup.WithContext(ctx)
	for i, doc := range documents {
		g.Go(func() error {
			callCtx, cancel := withTimeout(gctx, s.cfg.Timeouts.Extract)
			defer cancel()

			text, err := s.extractor.Extract(callCtx, doc)
			if err != nil {
				return upstream(StageExtract, doc.Filename, err)
			}
			extracted[i] = ExtractedDocument{Filename: doc.Filename, Text: text}
			return nil
		})
	}
	g.Go(func() error {
		callCtx, cancel := withTimeout(gctx, s.cfg.Timeouts.Search)
		defer cancel()

		found, err := s.searcher.Search(callCtx, question)
		if err != nil {
			return upstream(StageSearch, "", err)
		}
		results = found
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Str("stage", "gather").Dur("elapsed", time.Since(started)).Msg("report inputs failed")
		return Report{}, err
	}
	if len(results) > MaxSearchResults {
		results = results[:MaxSearchResults]
	}
	log.Info().
		Str("stage", "gather").
		Int("documents", len(extracted)).
		Int("results", len(results)).
		Dur("elapsed", time.Since(started)).
		Msg("report inputs ready")

	modelStarted := time.Now()
	modelCtx, cancel := withTimeout(ctx, s.cfg.Timeouts.Model)
	defer cancel()

	report, err := s.output.generate(modelCtx, s.model, buildReportMessages(question, extracted, results), s.cfg.SchemaRetries)
	if err != nil {
		log.Warn().Err(err).Str("stage", string(StageModel)).Dur("elapsed", time.Since(modelStarted)).Msg("report generation failed")
		return Report{}, err
	}
	log.Info().
		Str("stage", string(StageModel)).
		Int("takeaways", len(report.KeyTakeaways)).
		Int("sources", len(report.Sources)).
		Dur("elapsed", time.Since(modelStarted)).
		Msg("report generated")

	if audit := AuditProvenance(report, extracted, results); !audit.Clean() {
		log.Warn().Strs("unverified", audit.Unverified).Msg("report cites sources that were not provided")
	}
	return report, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
