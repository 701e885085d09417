package query

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"finagent/pkg/config"
	"finagent/pkg/core/agent"
	"finagent/pkg/core/llm"
	"finagent/pkg/core/prompt"
	"finagent/pkg/core/tools"
)

type fakeProvider struct{ reply llm.ChatResult }

func (f *fakeProvider) Chat(ctx context.Context, messages []llm.Message, toolSpecs []llm.ToolSpec) (llm.ChatResult, error) {
	return f.reply, nil
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	prompts := prompt.New()
	if err := prompts.Register(&prompt.PromptTemplate{
		ID:           prompt.PromptIDs.AgentSystem,
		SystemPrompt: "test system prompt",
	}); err != nil {
		t.Fatalf("register prompt: %v", err)
	}
	provider := &fakeProvider{reply: llm.ChatResult{AssistantText: "answer", StopReason: llm.StopFinal}}
	controller := agent.New(provider, tools.NewRegistry(), nil, prompts, config.Default(), nil)
	t.Cleanup(controller.Close)
	return NewHandler(controller, nil)
}

func TestQuery_EmptyQueryIsBadRequest(t *testing.T) {
	h := newTestHandler(t)
	r := chi.NewRouter()
	h.Routes(r)

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewBufferString(`{"query":""}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestQuery_ReturnsAgentResult(t *testing.T) {
	h := newTestHandler(t)
	r := chi.NewRouter()
	h.Routes(r)

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewBufferString(`{"query":"what was revenue?"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var result agent.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if result.Answer != "answer" {
		t.Fatalf("unexpected answer: %s", result.Answer)
	}
}

func TestQuery_ExplicitZeroMaxIterationsForcesSummary(t *testing.T) {
	h := newTestHandler(t)
	r := chi.NewRouter()
	h.Routes(r)

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewBufferString(`{"query":"what was revenue?","max_iterations":0}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var result agent.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if result.StopReason != agent.StopMaxIterations {
		t.Fatalf("expected explicit max_iterations=0 to force immediate summarization, got stop reason %s", result.StopReason)
	}
	if result.Iterations != 0 {
		t.Fatalf("expected 0 loop iterations, got %d", result.Iterations)
	}
}

func TestQuery_OmittedMaxIterationsDefaultsToFive(t *testing.T) {
	h := newTestHandler(t)
	r := chi.NewRouter()
	h.Routes(r)

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewBufferString(`{"query":"what was revenue?"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var result agent.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if result.StopReason != agent.StopFinalAnswer {
		t.Fatalf("expected the default budget to allow a normal final answer, got stop reason %s", result.StopReason)
	}
}

func TestQuery_MalformedBodyIsBadRequest(t *testing.T) {
	h := newTestHandler(t)
	r := chi.NewRouter()
	h.Routes(r)

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewBufferString(`{not json`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
