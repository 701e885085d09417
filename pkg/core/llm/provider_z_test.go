package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProviderZAdapter_Chat_PlainTextResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": "hello"}},
			},
			"usage": map[string]interface{}{"prompt_tokens": 10, "completion_tokens": 2},
		})
	}))
	defer server.Close()

	p := &ProviderZAdapter{APIKey: "test-key", Model: "deepseek-chat", BaseURL: server.URL, HTTPClient: server.Client()}
	result, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	require.NoError(t, err)
	require.Equal(t, "hello", result.AssistantText)
	require.Equal(t, StopFinal, result.StopReason)
	require.Equal(t, 10, result.Usage.PromptTokens)
}

func TestProviderZAdapter_Chat_ToolCallResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{
					"content": "",
					"tool_calls": []map[string]interface{}{
						{"id": "call_1", "function": map[string]interface{}{"name": "get_revenue_by_period", "arguments": `{"start_date":"2024-01-01"}`}},
					},
				}},
			},
		})
	}))
	defer server.Close()

	p := &ProviderZAdapter{APIKey: "test-key", BaseURL: server.URL, HTTPClient: server.Client()}
	result, err := p.Chat(context.Background(), nil, []ToolSpec{{Name: "get_revenue_by_period"}})
	require.NoError(t, err)
	require.Equal(t, StopToolCalls, result.StopReason)
	require.Len(t, result.ToolCalls, 1)
	require.Equal(t, "get_revenue_by_period", result.ToolCalls[0].Name)
}

func TestProviderZAdapter_Chat_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	p := &ProviderZAdapter{APIKey: "test-key", BaseURL: server.URL, HTTPClient: server.Client()}
	result, err := p.Chat(context.Background(), nil, nil)
	require.Error(t, err)
	require.Equal(t, 30, result.RetryAfter)
}

func TestProviderZAdapter_Chat_MissingAPIKey(t *testing.T) {
	p := &ProviderZAdapter{}
	_, err := p.Chat(context.Background(), nil, nil)
	require.Error(t, err)
}

func TestParseRetryAfter_Seconds(t *testing.T) {
	require.Equal(t, 5, parseRetryAfter("5"))
	require.Equal(t, 0, parseRetryAfter(""))
}
