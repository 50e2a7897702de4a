package tools

import (
	"context"
	"testing"
	"time"

	"github.com/nextlevelbuilder/clawai/internal/bus"
)

func TestMessageToolDelivers(t *testing.T) {
	b := bus.New()
	delivered := make(chan bus.OutboundMessage, 1)
	b.Subscribe("telegram", func(ctx context.Context, msg bus.OutboundMessage) error {
		delivered <- msg
		return nil
	})
	b.Start(context.Background())
	defer b.Stop()

	tool := NewMessageTool(b)
	tool.SetContext("telegram", "42")

	res := tool.Execute(context.Background(), map[string]interface{}{"message": "hello there"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.ForLLM)
	}
	if res.ForLLM != "Message sent to telegram:42" {
		t.Fatalf("got %q", res.ForLLM)
	}

	select {
	case msg := <-delivered:
		if msg.ChatID != "42" || msg.Content != "hello there" {
			t.Fatalf("unexpected delivery: %+v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message never delivered")
	}
}

func TestMessageToolWithoutContext(t *testing.T) {
	tool := NewMessageTool(bus.New())
	res := tool.Execute(context.Background(), map[string]interface{}{"message": "hi"})

	if !res.IsError {
		t.Fatal("expected error")
	}
	if res.ForLLM != "Error: message context not set (channel/chat_id missing)" {
		t.Fatalf("got %q", res.ForLLM)
	}
}

func TestMessageToolOverrides(t *testing.T) {
	b := bus.New()
	delivered := make(chan bus.OutboundMessage, 1)
	b.Subscribe("discord", func(ctx context.Context, msg bus.OutboundMessage) error {
		delivered <- msg
		return nil
	})
	b.Start(context.Background())
	defer b.Stop()

	tool := NewMessageTool(b)
	tool.SetContext("telegram", "42")

	tool.Execute(context.Background(), map[string]interface{}{
		"message": "cross-post",
		"channel": "discord",
		"chat_id": "777",
	})

	select {
	case msg := <-delivered:
		if msg.Channel != "discord" || msg.ChatID != "777" {
			t.Fatalf("override ignored: %+v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message never delivered")
	}
}
