package provider

import (
	"testing"

	"valet/internal/chat"
	"valet/internal/config"
)

func TestNewOpenAIConfig(t *testing.T) {
	p := NewOpenAI(config.ProviderConfig{
		APIKey:    "key",
		BaseURL:   "http://localhost:9999/v1",
		Model:     "gpt-4o-mini",
		TimeoutMS: 500,
	})
	if p.client == nil {
		t.Fatal("client not constructed")
	}
	if p.model != "gpt-4o-mini" {
		t.Errorf("model = %q", p.model)
	}
}

func TestMessageConversionRoundTrip(t *testing.T) {
	in := []chat.Message{
		{Role: "system", Content: "persona"},
		{Role: "assistant", ToolCalls: []chat.ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: chat.ToolCallFunction{Name: "open_app", Arguments: `{"name":"Notes"}`},
		}}},
		{Role: "tool", Name: "open_app", ToolCallID: "call_1", Content: "🚀 Opened Notes"},
	}
	out := toOpenAIMessages(in)
	if len(out) != 3 {
		t.Fatalf("len = %d", len(out))
	}
	if out[1].ToolCalls[0].Function.Name != "open_app" {
		t.Errorf("tool call = %+v", out[1].ToolCalls[0])
	}
	if out[2].ToolCallID != "call_1" {
		t.Errorf("tool call id = %q", out[2].ToolCallID)
	}

	defs := toOpenAITools([]chat.ToolDef{{
		Type:     "function",
		Function: chat.ToolFunction{Name: "open_app", Parameters: map[string]any{"type": "object"}},
	}})
	if len(defs) != 1 || defs[0].Function.Name != "open_app" {
		t.Errorf("defs = %+v", defs)
	}
}
