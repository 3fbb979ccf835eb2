package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"insight/backend/internal/research"
)

type ReportSynthesizer interface {
	Synthesize(ctx context.Context, question string, documents []research.DocumentInput) (research.Report, error)
}

type AnswerRefresher interface {
	Refresh(ctx context.Context, question, currentAnswer string, sourceURLs []string) (research.RefreshResult, error)
}

type Handler struct {
	synthesizer ReportSynthesizer
	refresher   AnswerRefresher
	limits      research.Limits
	now         func() time.Time
	newID       func() string
}

func NewHandler(synthesizer ReportSynthesizer, refresher AnswerRefresher, limits research.Limits) Handler {
	return Handler{
		synthesizer: synthesizer,
		refresher:   refresher,
		limits:      limits,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

type reportResponse struct {
	ID           string    `json:"id"`
	Question     string    `json:"question"`
	KeyTakeaways []string  `json:"keyTakeaways"`
	Summary      string    `json:"summary"`
	Sources      []string  `json:"sources"`
	CreatedAt    time.Time `json:"createdAt"`
}

type refreshRequest struct {
	Question      string   `json:"question"`
	CurrentAnswer string   `json:"currentAnswer"`
	SourceURLs    []string `json:"sourceUrls"`
}

func (h Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateReport accepts multipart uploads or a JSON body of data URIs and
// returns the synthesized report.
func (h Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	question, documents, cleanup, err := h.readReportRequest(w, r)
	defer cleanup()
	if err != nil {
		writeResearchError(w, err)
		return
	}

	if err := h.limits.ValidateQuestion(question); err != nil {
		writeResearchError(w, err)
		return
	}
	if err := h.limits.ValidateDocuments(documents); err != nil {
		writeResearchError(w, err)
		return
	}

	report, err := h.synthesizer.Synthesize(r.Context(), question, documents)
	if err != nil {
		writeResearchError(w, err)
		return
	}

	response := reportResponse{
		ID:           h.newID(),
		Question:     question,
		KeyTakeaways: report.KeyTakeaways,
		Summary:      report.Summary,
		Sources:      report.Sources,
		CreatedAt:    h.now().UTC(),
	}
	log.Info().Str("report_id", response.ID).Int("documents", len(documents)).Int("sources", len(report.Sources)).Msg("report created")
	writeJSON(w, http.StatusOK, map[string]any{"report": response})
}

func (h Handler) RefreshAnswer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRefreshRequestBytes)

	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be a JSON object with question, currentAnswer and sourceUrls")
		return
	}
	if err := h.limits.ValidateRefresh(req.Question, req.CurrentAnswer); err != nil {
		writeResearchError(w, err)
		return
	}

	result, err := h.refresher.Refresh(r.Context(), req.Question, req.CurrentAnswer, req.SourceURLs)
	if err != nil {
		writeResearchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}
