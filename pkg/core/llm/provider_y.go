package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"finagent/pkg/apperr"
)

// ProviderYAdapter implements Provider against Gemini via the official
// google.golang.org/genai SDK, grounded on the teacher's llm/gemini.go
// client setup and JSON-mode heuristics, generalized to carry a full
// message history and function-calling tools instead of a single prompt.
type ProviderYAdapter struct {
	APIKey string
	Model  string // defaults to gemini-2.0-flash-exp
}

func NewProviderYAdapter(apiKey, model string) *ProviderYAdapter {
	return &ProviderYAdapter{APIKey: apiKey, Model: model}
}

var _ Provider = (*ProviderYAdapter)(nil)

func (p *ProviderYAdapter) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatResult, error) {
	if p.APIKey == "" {
		return ChatResult{}, apperr.LLMUnavailable(fmt.Errorf("PROVIDERY_API_KEY_MISSING"), "ProviderY API key not configured")
	}

	model := p.Model
	if model == "" {
		model = "gemini-2.0-flash-exp"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return ChatResult{}, apperr.LLMTransient(err, "ProviderY: create client")
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.1)),
	}

	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
		case RoleTool:
			contents = append(contents, &genai.Content{
				Role: "function",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     m.ToolName,
						Response: map[string]interface{}{"result": m.Content},
					},
				}},
			})
		case RoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}

	if len(tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: toFunctionDeclarations(tools)}}
	}

	result, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return ChatResult{}, apperr.LLMTransient(err, "ProviderY: generate content failed")
	}

	chatResult := ChatResult{StopReason: StopFinal}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return chatResult, nil
	}

	for _, part := range result.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			argsJSON, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return ChatResult{}, apperr.Internal(err, "ProviderY: marshal function call arguments")
			}
			chatResult.ToolCalls = append(chatResult.ToolCalls, ToolCall{
				ID:            part.FunctionCall.Name,
				Name:          part.FunctionCall.Name,
				ArgumentsJSON: string(argsJSON),
			})
		}
		if part.Text != "" {
			chatResult.AssistantText += part.Text
		}
	}
	if len(chatResult.ToolCalls) > 0 {
		chatResult.StopReason = StopToolCalls
	}

	return chatResult, nil
}

func toFunctionDeclarations(tools []ToolSpec) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		properties := map[string]*genai.Schema{}
		var required []string
		for _, p := range t.Parameters {
			properties[p.Name] = &genai.Schema{
				Type:        genaiSchemaType(p.Type),
				Description: p.Description,
				Enum:        p.Enum,
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		out[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   required,
			},
		}
	}
	return out
}

func genaiSchemaType(t string) genai.Type {
	switch t {
	case "number":
		return genai.TypeNumber
	case "array":
		return genai.TypeArray
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
