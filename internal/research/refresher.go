package research

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const refreshSchemaName = "refresh_decision"

type RefresherConfig struct {
	Timeouts      Timeouts
	SchemaRetries int
}

// Refresher checks whether new information changes an existing answer. The
// decision and the revised answer come from a single structured model call.
type Refresher struct {
	fetcher Fetcher
	model   Model
	output  *structuredOutput[refreshDecision]
	cfg     RefresherConfig
}

func NewRefresher(fetcher Fetcher, model Model, cfg RefresherConfig) (*Refresher, error) {
	if fetcher == nil || model == nil {
		return nil, errors.New("refresher requires a fetcher and a model")
	}
	output, err := newStructuredOutput(refreshSchemaName, nil, checkRefreshDecision)
	if err != nil {
		return nil, err
	}
	return &Refresher{fetcher: fetcher, model: model, output: output, cfg: cfg}, nil
}

func checkRefreshDecision(decision refreshDecision) error {
	if decision.NeedsUpdate && strings.TrimSpace(decision.UpdatedAnswer) == "" {
		return errors.New("updatedAnswer is required when needsUpdate is true")
	}
	return nil
}

// Refresh never reports "no update" as an error: a negative decision returns
// the current answer unchanged with IsUpdated false.
func (r *Refresher) Refresh(ctx context.Context, question, currentAnswer string, sourceURLs []string) (RefreshResult, error) {
	started := time.Now()

	fetchCtx, cancelFetch := withTimeout(ctx, r.cfg.Timeouts.Fetch)
	newInformation, err := r.fetcher.Fetch(fetchCtx, question, sourceURLs)
	cancelFetch()
	if err != nil {
		log.Warn().Err(err).Str("stage", string(StageFetch)).Msg("refresh fetch failed")
		return RefreshResult{}, upstream(StageFetch, "", err)
	}

	modelCtx, cancelModel := withTimeout(ctx, r.cfg.Timeouts.Model)
	defer cancelModel()

	decision, err := r.output.generate(modelCtx, r.model, buildRefreshMessages(question, currentAnswer, sourceURLs, newInformation), r.cfg.SchemaRetries)
	if err != nil {
		log.Warn().Err(err).Str("stage", string(StageModel)).Msg("refresh decision failed")
		return RefreshResult{}, err
	}

	result := RefreshResult{UpdatedAnswer: currentAnswer}
	if decision.NeedsUpdate && strings.TrimSpace(decision.UpdatedAnswer) != strings.TrimSpace(currentAnswer) {
		result = RefreshResult{UpdatedAnswer: decision.UpdatedAnswer, IsUpdated: true}
	}
	log.Info().
		Str("stage", "refresh").
		Bool("updated", result.IsUpdated).
		Int("sources", len(sourceURLs)).
		Dur("elapsed", time.Since(started)).
		Msg("refresh completed")
	return result, nil
}
