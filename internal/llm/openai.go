package llm

import (
	"context"
	"errors"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider wraps openai-go with invopop/jsonschema-generated response
// schemas, grounded on basegraph's relay/common/llm/client.go — the one
// example in the corpus using the OpenAI SDK's native structured-output
// mode rather than free-text JSON extraction.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// GenerateSchema reflects a Go struct into a JSON Schema suitable for
// Request.Schema, exactly as basegraph's GenerateSchema[T]() does.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{AllowAdditionalProperties: false, DoNotReference: true}
	var v T
	return reflector.Reflect(v)
}

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(req.SystemPrompt),
		openai.UserMessage(req.UserPrompt),
	}

	params := openai.ChatCompletionNewParams{
		Model:               p.model,
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		retryable := true
		kind := KindTransport
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			switch {
			case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
				kind, retryable = KindAuth, false
			case apiErr.StatusCode == 429:
				kind = KindRateLimited
			case apiErr.StatusCode >= 500:
				kind = KindServer
			default:
				kind, retryable = KindServer, false
			}
		}
		return Response{}, &Error{Kind: kind, Provider: p.Name(), Message: "chat completion", Retryable: retryable, Cause: err}
	}
	if len(resp.Choices) == 0 {
		return Response{}, &Error{Kind: KindContentFilter, Provider: p.Name(), Message: "no choices in response", Retryable: true}
	}

	return Response{
		Text:             resp.Choices[0].Message.Content,
		RequestID:        resp.ID,
		Model:            resp.Model,
		FinishReason:     string(resp.Choices[0].FinishReason),
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}, nil
}
