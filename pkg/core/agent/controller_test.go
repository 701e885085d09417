package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finagent/pkg/config"
	"finagent/pkg/core/llm"
	"finagent/pkg/core/prompt"
	"finagent/pkg/core/tools"
)

// fakeProvider is a scripted llm.Provider: each call returns the next
// entry in responses, in order.
type fakeProvider struct {
	responses []llm.ChatResult
	calls     int
}

func (f *fakeProvider) Chat(ctx context.Context, messages []llm.Message, toolSpecs []llm.ToolSpec) (llm.ChatResult, error) {
	if f.calls >= len(f.responses) {
		return llm.ChatResult{AssistantText: "out of scripted responses", StopReason: llm.StopFinal}, nil
	}
	r := f.responses[f.calls]
	f.calls++
	return r, nil
}

func newTestController(t *testing.T, provider llm.Provider) *Controller {
	t.Helper()
	reg := tools.NewRegistry()
	prompts := prompt.New()
	require.NoError(t, prompts.Register(&prompt.PromptTemplate{
		ID:           prompt.PromptIDs.AgentSystem,
		SystemPrompt: "test system prompt",
	}))
	cfg := config.Default()
	c := New(provider, reg, nil, prompts, cfg, nil)
	t.Cleanup(c.Close)
	return c
}

func TestProcessQuery_FinalAnswerOnFirstTurn(t *testing.T) {
	provider := &fakeProvider{responses: []llm.ChatResult{
		{AssistantText: "total revenue was 100", StopReason: llm.StopFinal},
	}}
	c := newTestController(t, provider)

	result, err := c.ProcessQuery(context.Background(), "what was revenue?", "", 5)
	require.NoError(t, err)
	require.Equal(t, "total revenue was 100", result.Answer)
	require.Equal(t, StopFinalAnswer, result.StopReason)
	require.Equal(t, 1, result.Iterations)
	require.Empty(t, result.ToolCallsMade)
	require.NotEmpty(t, result.ConversationID)
}

func TestProcessQuery_UnknownToolCallIsRecordedAsError(t *testing.T) {
	provider := &fakeProvider{responses: []llm.ChatResult{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "not_a_real_tool", ArgumentsJSON: "{}"}}, StopReason: llm.StopToolCalls},
		{AssistantText: "that tool isn't available", StopReason: llm.StopFinal},
	}}
	c := newTestController(t, provider)

	result, err := c.ProcessQuery(context.Background(), "do something unsupported", "", 5)
	require.NoError(t, err)
	require.Equal(t, StopFinalAnswer, result.StopReason)
	require.Len(t, result.ToolCallsMade, 1)
	require.NotEmpty(t, result.ToolCallsMade[0].Error)
	require.Equal(t, 2, result.Iterations)
}

func TestProcessQuery_MaxIterationsForcesFinalCall(t *testing.T) {
	// Every loop call returns a tool call; the controller must still stop
	// after maxIterations and hand back whatever text the forced, tool-less
	// final call produced.
	responses := make([]llm.ChatResult, 0, 4)
	for i := 0; i < 3; i++ {
		responses = append(responses, llm.ChatResult{
			ToolCalls:  []llm.ToolCall{{ID: "call", Name: "not_a_real_tool", ArgumentsJSON: "{}"}},
			StopReason: llm.StopToolCalls,
		})
	}
	responses = append(responses, llm.ChatResult{AssistantText: "giving up after budget", StopReason: llm.StopFinal})
	provider := &fakeProvider{responses: responses}
	c := newTestController(t, provider)

	result, err := c.ProcessQuery(context.Background(), "loop forever", "", 3)
	require.NoError(t, err)
	require.Equal(t, StopMaxIterations, result.StopReason)
	require.Equal(t, "giving up after budget", result.Answer)
	require.Equal(t, 3, result.Iterations)
}

func TestProcessQuery_ZeroMaxIterationsForcesImmediateSummaryWithNoToolUse(t *testing.T) {
	// max_iterations=0 must skip the loop entirely and go straight to the
	// forced, tool-less final call: one provider call and no tool calls.
	provider := &fakeProvider{responses: []llm.ChatResult{
		{AssistantText: "immediate summary", StopReason: llm.StopFinal},
	}}
	c := newTestController(t, provider)

	result, err := c.ProcessQuery(context.Background(), "what was revenue?", "", 0)
	require.NoError(t, err)
	require.Equal(t, StopMaxIterations, result.StopReason)
	require.Equal(t, "immediate summary", result.Answer)
	require.Equal(t, 0, result.Iterations)
	require.Empty(t, result.ToolCallsMade)
	require.Equal(t, 1, provider.calls)
}

func TestProcessQuery_SameConversationIDReusesHistory(t *testing.T) {
	provider := &fakeProvider{responses: []llm.ChatResult{
		{AssistantText: "first answer", StopReason: llm.StopFinal},
		{AssistantText: "second answer", StopReason: llm.StopFinal},
	}}
	c := newTestController(t, provider)

	first, err := c.ProcessQuery(context.Background(), "question one", "", 5)
	require.NoError(t, err)

	second, err := c.ProcessQuery(context.Background(), "question two", first.ConversationID, 5)
	require.NoError(t, err)
	require.Equal(t, first.ConversationID, second.ConversationID)

	c.convMu.RLock()
	conv := c.conversations[first.ConversationID]
	c.convMu.RUnlock()
	require.NotNil(t, conv)
	require.GreaterOrEqual(t, len(conv.messages), 4) // 2 user + 2 assistant
}

func TestSweepExpired_RemovesStaleConversations(t *testing.T) {
	provider := &fakeProvider{}
	c := newTestController(t, provider)
	c.cfg.ConversationTTLS = 0 // any idle time counts as expired

	_, conv := c.getOrCreateConversation("stale-conv")
	conv.lastActive = time.Now().Add(-time.Hour)

	c.sweepExpired()

	c.convMu.RLock()
	_, ok := c.conversations["stale-conv"]
	c.convMu.RUnlock()
	require.False(t, ok)
}

func TestCapMessages_TrimsToMax(t *testing.T) {
	msgs := make([]llm.Message, 0, 10)
	for i := 0; i < 10; i++ {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: "x"})
	}
	capped := capMessages(msgs, 5)
	require.Len(t, capped, 5)
}
