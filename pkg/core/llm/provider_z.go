package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"finagent/pkg/apperr"
)

// ProviderZAdapter is a minimal HTTP-JSON provider for a DeepSeek-style
// chat-completions API, mirroring the teacher's llm/deepseek.go request
// shape and error-string conventions but generalized to carry tools and a
// multi-message history instead of a single prompt/systemPrompt pair.
type ProviderZAdapter struct {
	APIKey     string
	Model      string
	BaseURL    string // defaults to https://api.deepseek.com/chat/completions
	HTTPClient *http.Client
}

func NewProviderZAdapter(apiKey, model string) *ProviderZAdapter {
	return &ProviderZAdapter{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    "https://api.deepseek.com/chat/completions",
		HTTPClient: &http.Client{},
	}
}

var _ Provider = (*ProviderZAdapter)(nil)

type zMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

type zTool struct {
	Type     string       `json:"type"`
	Function zToolFuncDef `json:"function"`
}

type zToolFuncDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type zRequest struct {
	Model       string     `json:"model"`
	Messages    []zMessage `json:"messages"`
	Tools       []zTool    `json:"tools,omitempty"`
	Temperature float64    `json:"temperature"`
	MaxTokens   int        `json:"max_tokens"`
	Stream      bool       `json:"stream"`
}

type zToolCall struct {
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type zResponse struct {
	Choices []struct {
		Message struct {
			Content   string      `json:"content"`
			ToolCalls []zToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *ProviderZAdapter) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatResult, error) {
	if p.APIKey == "" {
		return ChatResult{}, apperr.LLMUnavailable(fmt.Errorf("PROVIDERZ_API_KEY_MISSING"), "ProviderZ API key not configured")
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
		return ChatResult{}, apperr.Internal(err, "ProviderZ: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL, bytes.NewBuffer(jsonBytes))
	if err != nil {
		return ChatResult{}, apperr.Internal(err, "ProviderZ: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	client := p.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	resp, err := client.Do(req)
	if err != nil {
		return ChatResult{}, apperr.LLMTransient(err, "ProviderZ: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResult{}, apperr.LLMTransient(err, "ProviderZ: read response body")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return ChatResult{RetryAfter: retryAfter}, apperr.LLMTransient(fmt.Errorf("rate limited"), "ProviderZ: status=429 body=%s", string(body))
	}
	if resp.StatusCode >= 500 {
		return ChatResult{}, apperr.LLMTransient(fmt.Errorf("server error"), "ProviderZ: status=%d body=%s", resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return ChatResult{}, apperr.LLMUnavailable(fmt.Errorf("bad request"), "ProviderZ: status=%d body=%s", resp.StatusCode, string(body))
	}

	var parsed zResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ChatResult{}, apperr.LLMTransient(err, "ProviderZ: unmarshal response")
	}
	if len(parsed.Choices) == 0 {
		return ChatResult{}, apperr.LLMTransient(fmt.Errorf("no choices"), "ProviderZ: empty choices in response")
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

func toZMessages(messages []Message) []zMessage {
	out := make([]zMessage, len(messages))
	for i, m := range messages {
		out[i] = zMessage{Role: string(m.Role), Content: m.Content, ToolCallID: m.ToolCallID}
	}
	return out
}

func toZTools(tools []ToolSpec) []zTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]zTool, len(tools))
	for i, t := range tools {
		properties := map[string]interface{}{}
		var required []string
		for _, p := range t.Parameters {
			prop := map[string]interface{}{"type": jsonSchemaType(p.Type), "description": p.Description}
			if len(p.Enum) > 0 {
				prop["enum"] = p.Enum
			}
			properties[p.Name] = prop
			if p.Required {
				required = append(required, p.Name)
			}
		}
		out[i] = zTool{
			Type: "function",
			Function: zToolFuncDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": properties,
					"required":   required,
				},
			},
		}
	}
	return out
}

func jsonSchemaType(t string) string {
	switch t {
	case "number":
		return "number"
	case "array":
		return "array"
	case "boolean":
		return "boolean"
	default:
		return "string"
	}
}

func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return secs
	}
	if t, err := time.Parse(time.RFC1123, header); err == nil {
		return int(time.Until(t).Seconds())
	}
	return 0
}
