package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAnthropicVendorErrorNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"overloaded_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", WithAnthropicBaseURL(srv.URL))
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("vendor error must not surface as Go error, got %v", err)
	}
	if resp.FinishReason != FinishError {
		t.Errorf("FinishReason = %q, want %q", resp.FinishReason, FinishError)
	}
	if resp.Content == "" {
		t.Error("expected diagnostic in Content")
	}
}

func TestAnthropicTimeoutNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", WithAnthropicBaseURL(srv.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	resp, err := p.Chat(ctx, ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("timeout must not surface as Go error, got %v", err)
	}
	if resp.FinishReason != FinishTimeout {
		t.Errorf("FinishReason = %q, want %q", resp.FinishReason, FinishTimeout)
	}
}

func TestAnthropicToolCallResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "let me check"},
				{"type": "tool_use", "id": "tc_1", "name": "read_file", "input": {"path": "/tmp/a"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", WithAnthropicBaseURL(srv.URL))
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "read a"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.FinishReason != FinishToolCalls {
		t.Errorf("FinishReason = %q, want tool_calls", resp.FinishReason)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "read_file" {
		t.Fatalf("ToolCalls = %+v", resp.ToolCalls)
	}
	if resp.ToolCalls[0].Arguments["path"] != "/tmp/a" {
		t.Errorf("Arguments = %v", resp.ToolCalls[0].Arguments)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
}

func TestOpenAIToolCallResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{
				"message": {
					"content": "",
					"tool_calls": [{"id": "call_1", "type": "function",
						"function": {"name": "exec", "arguments": "{\"command\":\"ls\"}"}}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("openai", "key", WithOpenAIBaseURL(srv.URL))
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "ls"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.FinishReason != FinishToolCalls {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Arguments["command"] != "ls" {
		t.Fatalf("ToolCalls = %+v", resp.ToolCalls)
	}
}

func TestRegistryModelRouting(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewAnthropicProvider("k"))
	reg.Register(NewOpenAIProvider("openai", "k"))

	p, err := reg.ForModel("claude-sonnet-4-5")
	if err != nil || p.Name() != "anthropic" {
		t.Errorf("claude routed to %v, %v", p, err)
	}
	p, err = reg.ForModel("gpt-4o")
	if err != nil || p.Name() != "openai" {
		t.Errorf("gpt routed to %v, %v", p, err)
	}
	// Unknown model falls back to the first registered provider.
	if _, err := reg.ForModel("mystery-model"); err != nil {
		t.Errorf("fallback failed: %v", err)
	}
}
