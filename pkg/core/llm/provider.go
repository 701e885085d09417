// Package llm implements the C7 component: a provider-agnostic chat
// contract with tool-calling support, plus three concrete adapters
// (ProviderXAdapter, ProviderYAdapter, ProviderZAdapter) each translating to
// one provider's native dialect. Grounded on the teacher's
// pkg/core/llm.Provider shape, generalized from a single-shot
// GenerateResponse into a tool-calling Chat call.
package llm

import (
	"context"
)

// Role is a chat message's role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn in a conversation.
type Message struct {
	Role       Role   `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
}

// ToolSpec is what the adapter hands a provider to describe a callable tool.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  []ToolParam
}

// ToolParam mirrors tools.ParamSchema without importing the tools package,
// keeping the adapter's dependency direction one way (tools depends on
// nothing here; callers translate tools.ParamSchema to ToolParam).
type ToolParam struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
}

// ToolCall is a single tool invocation the model asked for.
type ToolCall struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ArgumentsJSON string `json:"arguments_json"`
}

// StopReason reports why a Chat call returned.
type StopReason string

const (
	StopFinal     StopReason = "final"
	StopToolCalls StopReason = "tool_calls"
)

// Usage reports token accounting, when the provider exposes it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// ChatResult is the adapter's uniform response shape.
type ChatResult struct {
	AssistantText string
	ToolCalls     []ToolCall
	Usage         Usage
	StopReason    StopReason
	RetryAfter    int // seconds, surfaced from a provider's Retry-After header
}

// Provider is the interface every concrete adapter satisfies.
type Provider interface {
	// Chat sends messages plus the available tool catalog to the provider
	// and returns its reply, uniformly shaped regardless of the
	// provider's native tool-calling dialect.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatResult, error)
}
