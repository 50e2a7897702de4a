package tools

import (
	"context"
	"strings"
	"testing"
)

type stubTool struct {
	name    string
	params  map[string]interface{}
	execute func(ctx context.Context, args map[string]interface{}) *Result

	channel string
	chatID  string
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }

func (s *stubTool) Parameters() map[string]interface{} {
	if s.params != nil {
		return s.params
	}
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (s *stubTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if s.execute != nil {
		return s.execute(ctx, args)
	}
	return NewResult("ok")
}

func (s *stubTool) SetContext(channel, chatID string) {
	s.channel = channel
	s.chatID = chatID
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	res := r.Execute(context.Background(), "nope", nil)

	if !res.IsError {
		t.Fatal("expected error result")
	}
	if res.ForLLM != "Error: tool 'nope' is not registered" {
		t.Fatalf("unexpected message: %q", res.ForLLM)
	}
}

func TestExecuteMissingRequiredParam(t *testing.T) {
	r := NewRegistry()
	r.Register(NewReadFileTool())

	res := r.Execute(context.Background(), "read_file", map[string]interface{}{})
	if !res.IsError {
		t.Fatal("expected error result")
	}
	want := "Error: invalid parameters for tool 'read_file': missing required path"
	if res.ForLLM != want {
		t.Fatalf("got %q, want %q", res.ForLLM, want)
	}
}

func TestExecuteTypeMismatch(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{
		name: "typed",
		params: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"n": map[string]interface{}{"type": "integer"},
			},
		},
	})

	res := r.Execute(context.Background(), "typed", map[string]interface{}{"n": "five"})
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.HasPrefix(res.ForLLM, "Error: invalid parameters for tool 'typed':") {
		t.Fatalf("unexpected message: %q", res.ForLLM)
	}
}

func TestExecutePanicContained(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{
		name: "boom",
		execute: func(ctx context.Context, args map[string]interface{}) *Result {
			panic("kaboom")
		},
	})

	res := r.Execute(context.Background(), "boom", map[string]interface{}{})
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.HasPrefix(res.ForLLM, "Error: tool 'boom' execution failed:") {
		t.Fatalf("unexpected message: %q", res.ForLLM)
	}
}

func TestDefinitionsPreserveRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "zeta"})
	r.Register(&stubTool{name: "alpha"})
	r.Register(&stubTool{name: "mid"})

	defs := r.Definitions()
	got := make([]string, len(defs))
	for i, d := range defs {
		if d.Type != "function" {
			t.Fatalf("unexpected type %q", d.Type)
		}
		got[i] = d.Function.Name
	}
	want := []string{"zeta", "alpha", "mid"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}
}

func TestSetContextReachesContextAwareTools(t *testing.T) {
	r := NewRegistry()
	aware := &stubTool{name: "aware"}
	r.Register(aware)
	r.Register(NewReadFileTool())

	r.SetContext("telegram", "42")
	if aware.channel != "telegram" || aware.chatID != "42" {
		t.Fatalf("context not propagated: %q %q", aware.channel, aware.chatID)
	}
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "a"})
	r.Register(&stubTool{name: "b"})
	r.Unregister("a")

	if _, ok := r.Get("a"); ok {
		t.Fatal("tool a still registered")
	}
	defs := r.Definitions()
	if len(defs) != 1 || defs[0].Function.Name != "b" {
		t.Fatalf("unexpected definitions: %+v", defs)
	}
}
