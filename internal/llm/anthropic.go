package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AnthropicProvider is a raw-HTTP Messages API client, grounded on the
// teacher's internal/perception/client_anthropic.go (manual request structs,
// explicit timeout/retry discipline — the retry loop itself now lives one
// layer up in Gateway.Complete, so this client makes a single attempt).
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	if model == "" {
		model = "claude-sonnet-4-5-20250514"
	}
	return &AnthropicProvider{
		apiKey:  apiKey,
		baseURL: "https://api.anthropic.com/v1",
		model:   model,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID         string `json:"id"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (Response, error) {
	if p.apiKey == "" {
		return Response{}, &Error{Kind: KindAuth, Provider: p.Name(), Message: "API key not configured", Retryable: false}
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	body := anthropicRequest{
		Model:       p.model,
		MaxTokens:   maxTokens,
		System:      req.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: req.UserPrompt}},
		Temperature: req.Temperature,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, &Error{Kind: KindTransport, Provider: p.Name(), Message: "marshal request", Retryable: false, Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return Response{}, &Error{Kind: KindTransport, Provider: p.Name(), Message: "build request", Retryable: false, Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Response{}, &Error{Kind: KindTransport, Provider: p.Name(), Message: "request failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &Error{Kind: KindTransport, Provider: p.Name(), Message: "read response", Retryable: true, Cause: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return Response{}, &Error{Kind: KindRateLimited, Provider: p.Name(), Message: fmt.Sprintf("status %d", resp.StatusCode), Retryable: true}
	}
	if resp.StatusCode >= 500 {
		return Response{}, &Error{Kind: KindServer, Provider: p.Name(), Message: fmt.Sprintf("status %d", resp.StatusCode), Retryable: true}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Response{}, &Error{Kind: KindAuth, Provider: p.Name(), Message: fmt.Sprintf("status %d: %s", resp.StatusCode, respBody), Retryable: false}
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, &Error{Kind: KindServer, Provider: p.Name(), Message: fmt.Sprintf("status %d: %s", resp.StatusCode, respBody), Retryable: false}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Response{}, &Error{Kind: KindTransport, Provider: p.Name(), Message: "parse response", Retryable: false, Cause: err}
	}
	if parsed.Error != nil {
		return Response{}, &Error{Kind: KindServer, Provider: p.Name(), Message: parsed.Error.Message, Retryable: false}
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	out := strings.TrimSpace(text.String())
	if req.Schema != nil {
		if extracted, err := ExtractJSON(out); err == nil {
			out = extracted
		}
	}

	return Response{
		Text:             out,
		RequestID:        parsed.ID,
		Model:            p.model,
		FinishReason:     parsed.StopReason,
		PromptTokens:     parsed.Usage.InputTokens,
		CompletionTokens: parsed.Usage.OutputTokens,
	}, nil
}
