package llm

import (
	"context"

	"google.golang.org/genai"
)

// GeminiProvider uses the unified google.golang.org/genai SDK rather than
// the teacher's own hand-rolled Gemini HTTP client (internal/perception/
// client_gemini.go): the teacher predates the unified SDK's stabilization,
// but the rest of the pack already depends on it (SPEC_FULL.md §11), so the
// Gemini provider, like the OpenAI provider, is built on a vendor SDK
// rather than raw HTTP. Every SDK error is reported as KindTransport; the
// HTTP status is not inspected.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &Error{Kind: KindTransport, Provider: "gemini", Message: "build client", Retryable: false, Cause: err}
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Complete(ctx context.Context, req Request) (Response, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(req.UserPrompt), cfg)
	if err != nil {
		return Response{}, &Error{Kind: KindTransport, Provider: p.Name(), Message: "generate content", Retryable: true, Cause: err}
	}

	text := result.Text()
	promptTokens, completionTokens := 0, 0
	if result.UsageMetadata != nil {
		promptTokens = int(result.UsageMetadata.PromptTokenCount)
		completionTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}

	var finishReason string
	if len(result.Candidates) > 0 {
		finishReason = string(result.Candidates[0].FinishReason)
	}

	return Response{
		Text:             text,
		Model:            p.model,
		FinishReason:     finishReason,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
	}, nil
}
