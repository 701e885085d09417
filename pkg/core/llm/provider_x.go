package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"finagent/pkg/apperr"
)

// ProviderXAdapter talks to an OpenAI-shaped chat-completions endpoint with
// native tool calling. Request/response shapes are OpenAI's, so it shares
// the zRequest/zResponse wire types with ProviderZAdapter (both are
// OpenAI-compatible chat-completions dialects) but against a different
// default base URL and without the DeepSeek-specific "thinking" field the
// teacher's deepseek.go carried.
type ProviderXAdapter struct {
	APIKey     string
	Model      string
	BaseURL    string // defaults to https://api.openai.com/v1/chat/completions
	HTTPClient *http.Client
}

func NewProviderXAdapter(apiKey, model string) *ProviderXAdapter {
	return &ProviderXAdapter{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    "https://api.openai.com/v1/chat/completions",
		HTTPClient: &http.Client{},
	}
}

var _ Provider = (*ProviderXAdapter)(nil)

func (p *ProviderXAdapter) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatResult, error) {
	if p.APIKey == "" {
		return ChatResult{}, apperr.LLMUnavailable(fmt.Errorf("PROVIDERX_API_KEY_MISSING"), "ProviderX API key not configured")
	}

	reqBody := zRequest{
		Model:       p.Model,
		Messages:    toZMessages(messages),
		Tools:       toZTools(tools),
		Temperature: 0.1,
		MaxTokens:   2048,
	}

	jsonBytes, err := json.Marshal(reqBody)
	if err != nil {
		return ChatResult{}, apperr.Internal(err, "ProviderX: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL, bytes.NewBuffer(jsonBytes))
	if err != nil {
		return ChatResult{}, apperr.Internal(err, "ProviderX: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	client := p.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	resp, err := client.Do(req)
	if err != nil {
		return ChatResult{}, apperr.LLMTransient(err, "ProviderX: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResult{}, apperr.LLMTransient(err, "ProviderX: read response body")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return ChatResult{RetryAfter: retryAfter}, apperr.LLMTransient(fmt.Errorf("rate limited"), "ProviderX: status=429 body=%s", string(body))
	}
	if resp.StatusCode >= 500 {
		return ChatResult{}, apperr.LLMTransient(fmt.Errorf("server error"), "ProviderX: status=%d body=%s", resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return ChatResult{}, apperr.LLMUnavailable(fmt.Errorf("bad request"), "ProviderX: status=%d body=%s", resp.StatusCode, string(body))
	}

	var parsed zResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ChatResult{}, apperr.LLMTransient(err, "ProviderX: unmarshal response")
	}
	if len(parsed.Choices) == 0 {
		return ChatResult{}, apperr.LLMTransient(fmt.Errorf("no choices"), "ProviderX: empty choices in response")
	}

	choice := parsed.Choices[0]
	result := ChatResult{
		AssistantText: choice.Message.Content,
		Usage:         Usage{PromptTokens: parsed.Usage.PromptTokens, CompletionTokens: parsed.Usage.CompletionTokens},
		StopReason:    StopFinal,
	}
	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, ArgumentsJSON: tc.Function.Arguments})
	}
	if len(result.ToolCalls) > 0 {
		result.StopReason = StopToolCalls
	}
	return result, nil
}
