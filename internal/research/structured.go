package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// structuredOutput pairs the JSON schema sent to the model with the resolved
// form used to validate what comes back.
type structuredOutput[T any] struct {
	name     string
	raw      []byte
	resolved *jsonschema.Resolved
	check    func(T) error
}

func newStructuredOutput[T any](name string, tune func(*jsonschema.Schema), check func(T) error) (*structuredOutput[T], error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("infer %s schema: %w", name, err)
	}
	if tune != nil {
		tune(schema)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve %s schema: %w", name, err)
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", name, err)
	}
	return &structuredOutput[T]{name: name, raw: raw, resolved: resolved, check: check}, nil
}

func (s *structuredOutput[T]) outputSchema() *OutputSchema {
	return &OutputSchema{Name: s.name, Schema: s.raw}
}

// parse validates raw model text against the schema and decodes it.
func (s *structuredOutput[T]) parse(raw string) (T, error) {
	var zero T

	block := extractJSONBlock(raw)
	if block == "" {
		return zero, errors.New("response did not include a json object")
	}

	var instance map[string]any
	if err := json.Unmarshal([]byte(block), &instance); err != nil {
		return zero, fmt.Errorf("response is not valid json: %w", err)
	}
	if err := s.resolved.Validate(instance); err != nil {
		return zero, err
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(block)))
	decoder.DisallowUnknownFields()
	var out T
	if err := decoder.Decode(&out); err != nil {
		return zero, err
	}
	if s.check != nil {
		if err := s.check(out); err != nil {
			return zero, err
		}
	}
	return out, nil
}

// generate asks the model for a schema-conformant object. Shape violations
// are answered with a corrective message up to retries times; transport
// failures are returned immediately as UpstreamError.
func (s *structuredOutput[T]) generate(ctx context.Context, model Model, messages []Message, retries int) (T, error) {
	var zero T
	if retries < 0 {
		retries = 0
	}

	conversation := append([]Message(nil), messages...)
	var lastRaw string
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		raw, err := model.Generate(ctx, ModelRequest{Messages: conversation, Schema: s.outputSchema()})
		if err != nil {
			return zero, upstream(StageModel, "", err)
		}

		out, err := s.parse(raw)
		if err == nil {
			return out, nil
		}
		lastRaw, lastErr = raw, err
		conversation = append(conversation,
			Message{Role: "assistant", Content: raw},
			Message{Role: "user", Content: correctiveMessage(s.name, err)},
		)
	}

	return zero, &SchemaViolationError{
		Schema:   s.name,
		Raw:      trimToRunes(lastRaw, 2_000),
		Attempts: retries + 1,
		Err:      lastErr,
	}
}

func extractJSONBlock(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "```json")
	value = strings.TrimPrefix(value, "```")
	value = strings.TrimSuffix(value, "```")
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}") {
		return value
	}
	start := strings.Index(value, "{")
	end := strings.LastIndex(value, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return strings.TrimSpace(value[start : end+1])
}
