// Package agent implements the C8 component: the plan/execute loop that
// interleaves LLM calls with C6 tool calls until it produces a final
// textual answer, plus process-local conversation memory with a
// per-conversation mutex and a background TTL sweep. Grounded on the
// teacher's debate.DebateManager (sync.RWMutex map + time.NewTicker
// cleanup goroutine), redesigned from a package-level singleton into an
// injected Controller value per the store's same lifetime redesign.
package agent

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"finagent/pkg/apperr"
	"finagent/pkg/config"
	"finagent/pkg/core/llm"
	"finagent/pkg/core/prompt"
	"finagent/pkg/core/store"
	"finagent/pkg/core/tools"
)

// StopReason reports why process_query's loop ended.
type StopReason string

const (
	StopFinalAnswer    StopReason = "final_answer"
	StopMaxIterations  StopReason = "max_iterations"
	StopLLMError       StopReason = "llm_error"
)

// ToolCallRecord is one tool invocation made during a process_query call.
type ToolCallRecord struct {
	Name       string `json:"name"`
	ArgsJSON   string `json:"args_json"`
	ResultJSON string `json:"result_json,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Result is process_query's return value.
type Result struct {
	Answer         string           `json:"answer"`
	ConversationID string           `json:"conversation_id"`
	ToolCallsMade  []ToolCallRecord `json:"tool_calls_made"`
	Iterations     int              `json:"iterations"`
	StopReason     StopReason       `json:"stop_reason"`
}

// conversation is one conversation's memory: its message history plus the
// per-conversation lock that serializes all processing for that id.
type conversation struct {
	mu         sync.Mutex
	messages   []llm.Message
	lastActive time.Time
}

// Controller is the C8 Agent Controller.
type Controller struct {
	provider llm.Provider
	registry *tools.Registry
	store    *store.Store
	prompts  *prompt.Registry
	cfg      *config.Config
	log      *zap.Logger

	convMu        sync.RWMutex
	conversations map[string]*conversation

	stopSweep chan struct{}
}

const maxConversationMessages = 50

// New builds a Controller and starts its background conversation reaper.
// Call Close to stop the reaper when the controller is no longer needed.
func New(provider llm.Provider, registry *tools.Registry, st *store.Store, prompts *prompt.Registry, cfg *config.Config, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		provider:      provider,
		registry:      registry,
		store:         st,
		prompts:       prompts,
		cfg:           cfg,
		log:           log,
		conversations: make(map[string]*conversation),
		stopSweep:     make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Close stops the background TTL reaper.
func (c *Controller) Close() {
	close(c.stopSweep)
}

func (c *Controller) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopSweep:
			return
		case <-ticker.C:
			c.sweepExpired()
		}
	}
}

func (c *Controller) sweepExpired() {
	ttl := c.cfg.ConversationTTL()
	c.convMu.Lock()
	defer c.convMu.Unlock()
	for id, conv := range c.conversations {
		if time.Since(conv.lastActive) > ttl {
			delete(c.conversations, id)
		}
	}
}

func (c *Controller) getOrCreateConversation(conversationID string) (string, *conversation) {
	c.convMu.Lock()
	defer c.convMu.Unlock()

	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	conv, ok := c.conversations[conversationID]
	if !ok {
		conv = &conversation{lastActive: time.Now()}
		c.conversations[conversationID] = conv
	}
	return conversationID, conv
}

// ProcessQuery implements process_query: the single-turn plan/execute loop.
// All processing for one conversation_id is serialized by that
// conversation's mutex; different conversations may run concurrently.
func (c *Controller) ProcessQuery(ctx context.Context, query string, conversationID string, maxIterations int) (Result, error) {
	// max_iterations=0 is a valid, deliberate request for an immediate
	// summarization call with no tool use (the loop below simply doesn't
	// run); only a negative value is nonsensical and falls back to the
	// documented default of 5.
	if maxIterations < 0 {
		maxIterations = 5
	}

	conversationID, conv := c.getOrCreateConversation(conversationID)

	conv.mu.Lock()
	defer conv.mu.Unlock()
	conv.lastActive = time.Now()

	systemPrompt, err := prompt.GetAgentPrompt(c.prompts)
	if err != nil {
		systemPrompt = defaultSystemPrompt
	}

	conv.messages = append(conv.messages, llm.Message{Role: llm.RoleUser, Content: query})
	conv.messages = capMessages(conv.messages, maxConversationMessages)

	toolSpecs := toLLMToolSpecs(c.registry)

	result := Result{ConversationID: conversationID}

	for iteration := 1; iteration <= maxIterations; iteration++ {
		result.Iterations = iteration

		chatResult, err := c.callLLM(ctx, systemPrompt, conv.messages, toolSpecs)
		if err != nil {
			result.Answer = "I was unable to reach the language model to answer this question. Please try again shortly."
			result.StopReason = StopLLMError
			return result, nil
		}

		if len(chatResult.ToolCalls) == 0 {
			conv.messages = append(conv.messages, llm.Message{Role: llm.RoleAssistant, Content: chatResult.AssistantText})
			result.Answer = chatResult.AssistantText
			result.StopReason = StopFinalAnswer
			return result, nil
		}

		conv.messages = append(conv.messages, llm.Message{Role: llm.RoleAssistant, Content: chatResult.AssistantText})

		for _, tc := range chatResult.ToolCalls {
			record := ToolCallRecord{Name: tc.Name, ArgsJSON: tc.ArgumentsJSON}

			toolResult, err := c.registry.Execute(ctx, c.store, tc.Name, tc.ArgumentsJSON)
			var toolMessageContent string
			if err != nil {
				record.Error = err.Error()
				toolMessageContent = errorToolResultJSON(err)
			} else {
				resultJSON, marshalErr := json.Marshal(toolResult)
				if marshalErr != nil {
					record.Error = marshalErr.Error()
					toolMessageContent = errorToolResultJSON(marshalErr)
				} else {
					record.ResultJSON = string(resultJSON)
					toolMessageContent = string(resultJSON)
				}
			}

			result.ToolCallsMade = append(result.ToolCallsMade, record)
			conv.messages = append(conv.messages, llm.Message{
				Role: llm.RoleTool, Content: toolMessageContent, ToolCallID: tc.ID, ToolName: tc.Name,
			})
		}

		conv.messages = capMessages(conv.messages, maxConversationMessages)
	}

	// Iteration budget exhausted: force one final call with no tools so the
	// model must answer in text instead of asking for another tool call.
	finalResult, err := c.callLLM(ctx, systemPrompt, conv.messages, nil)
	if err != nil {
		result.Answer = "I was unable to reach the language model to produce a final answer."
		result.StopReason = StopLLMError
		return result, nil
	}
	conv.messages = append(conv.messages, llm.Message{Role: llm.RoleAssistant, Content: finalResult.AssistantText})
	result.Answer = finalResult.AssistantText
	result.StopReason = StopMaxIterations
	return result, nil
}

func (c *Controller) callLLM(ctx context.Context, systemPrompt string, messages []llm.Message, toolSpecs []llm.ToolSpec) (llm.ChatResult, error) {
	timeout := c.cfg.LLMTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	full := make([]llm.Message, 0, len(messages)+1)
	full = append(full, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	full = append(full, messages...)

	result, err := c.provider.Chat(ctx, full, toolSpecs)
	if err != nil {
		c.log.Warn("llm call failed", zap.Error(err), zap.String("kind", string(apperr.KindOf(err))))
		return llm.ChatResult{}, err
	}
	return result, nil
}

func capMessages(messages []llm.Message, max int) []llm.Message {
	if len(messages) <= max {
		return messages
	}
	return messages[len(messages)-max:]
}

func toLLMToolSpecs(registry *tools.Registry) []llm.ToolSpec {
	catalog := registry.Catalog()
	specs := make([]llm.ToolSpec, len(catalog))
	for i, t := range catalog {
		params := make([]llm.ToolParam, len(t.Parameters))
		for j, p := range t.Parameters {
			params[j] = llm.ToolParam{Name: p.Name, Type: p.Type, Description: p.Description, Required: p.Required, Enum: p.Enum}
		}
		specs[i] = llm.ToolSpec{Name: t.Name, Description: t.Description, Parameters: params}
	}
	return specs
}

func errorToolResultJSON(err error) string {
	body, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	if marshalErr != nil {
		return `{"error":"tool failed"}`
	}
	return string(body)
}

const defaultSystemPrompt = `You are a financial data assistant. You answer questions about ingested ` +
	`financial records by calling the available tools; never guess a number you could retrieve. ` +
	`When a tool call fails, consider whether a different tool or narrower parameters would succeed ` +
	`before giving up and explaining the limitation to the user.`
