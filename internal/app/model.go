package app

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"insight/backend/internal/openrouter"
	"insight/backend/internal/research"
)

// OpenRouterModel adapts the OpenRouter chat client to research.Model.
// Schema-constrained requests are sent as a strict json_schema response
// format.
type OpenRouterModel struct {
	client          openrouter.Client
	model           string
	reasoningEffort string
}

func NewOpenRouterModel(client openrouter.Client, model, reasoningEffort string) OpenRouterModel {
	return OpenRouterModel{client: client, model: model, reasoningEffort: reasoningEffort}
}

func (m OpenRouterModel) Generate(ctx context.Context, req research.ModelRequest) (string, error) {
	messages := make([]openrouter.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openrouter.Message{Role: msg.Role, Content: msg.Content})
	}

	streamReq := openrouter.StreamRequest{Model: m.model, Messages: messages}
	if m.reasoningEffort != "" {
		streamReq.Reasoning = &openrouter.ReasoningConfig{Effort: m.reasoningEffort}
	}
	if req.Schema != nil {
		streamReq.ResponseFormat = openrouter.JSONSchemaFormat(req.Schema.Name, json.RawMessage(req.Schema.Schema))
	}

	content, usage, err := m.client.Complete(ctx, streamReq)
	if err != nil {
		return "", err
	}
	event := log.Debug().
		Str("model", m.model).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens)
	if usage.ReasoningTokens != nil {
		event = event.Int("reasoning_tokens", *usage.ReasoningTokens)
	}
	if usage.CostMicrosUSD != nil {
		event = event.Int("cost_micros_usd", *usage.CostMicrosUSD)
	}
	event.Msg("model completion")
	return content, nil
}
