package channels

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/clawai/internal/bus"
)

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		name      string
		allowList []string
		senderID  string
		want      bool
	}{
		{"empty list allows all", nil, "12345", true},
		{"exact id match", []string{"12345"}, "12345", true},
		{"id part of compound sender", []string{"12345"}, "12345|alice", true},
		{"username part of compound sender", []string{"alice"}, "12345|alice", true},
		{"username with @ prefix", []string{"@alice"}, "12345|alice", true},
		{"unlisted sender rejected", []string{"12345"}, "99999", false},
		{"unlisted compound rejected", []string{"12345"}, "99999|bob", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewBaseChannel("test", bus.New(), tt.allowList)
			if got := c.IsAllowed(tt.senderID); got != tt.want {
				t.Fatalf("IsAllowed(%q) = %v, want %v", tt.senderID, got, tt.want)
			}
		})
	}
}

func TestHandleMessagePublishes(t *testing.T) {
	b := bus.New()
	c := NewBaseChannel("test", b, nil)

	c.HandleMessage("u1", "chat9", "hello", []string{"/tmp/a.png"}, map[string]string{"k": "v"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, ok := b.ConsumeInbound(ctx)
	if !ok {
		t.Fatal("no inbound message published")
	}
	if msg.Channel != "test" || msg.SenderID != "u1" || msg.ChatID != "chat9" || msg.Content != "hello" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if len(msg.Media) != 1 || msg.Metadata["k"] != "v" {
		t.Fatalf("media/metadata lost: %+v", msg)
	}
}

func TestHandleMessageBlocksDisallowedSender(t *testing.T) {
	b := bus.New()
	c := NewBaseChannel("test", b, []string{"allowed"})

	c.HandleMessage("intruder", "chat", "hi", nil, nil)

	if b.InboundSize() != 0 {
		t.Fatal("disallowed sender message was published")
	}
}

func TestSenderLimiterThrottlesBursts(t *testing.T) {
	l := NewSenderLimiter()

	allowed := 0
	for i := 0; i < 20; i++ {
		if l.Allow("spammer") {
			allowed++
		}
	}
	if allowed != senderBurst {
		t.Fatalf("allowed %d messages, want burst of %d", allowed, senderBurst)
	}

	// Other senders keep their own budget.
	if !l.Allow("someone-else") {
		t.Fatal("independent sender throttled")
	}
}

func TestSplitMessage(t *testing.T) {
	if got := SplitMessage("short", 100); len(got) != 1 || got[0] != "short" {
		t.Fatalf("short message split: %v", got)
	}

	long := strings.Repeat("line one\n", 50)
	chunks := SplitMessage(long, 100)
	if len(chunks) < 2 {
		t.Fatalf("long message not split: %d chunks", len(chunks))
	}
	var rebuilt strings.Builder
	for _, chunk := range chunks {
		if len(chunk) > 100 {
			t.Fatalf("chunk exceeds limit: %d bytes", len(chunk))
		}
		// Cuts should land after newlines when possible.
		if !strings.HasSuffix(chunk, "\n") && chunk != chunks[len(chunks)-1] {
			t.Fatalf("chunk not cut at newline: %q", chunk)
		}
		rebuilt.WriteString(chunk)
	}
	if rebuilt.String() != long {
		t.Fatal("chunks do not reassemble to original")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 4); got != "abcd..." {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("abc", 4); got != "abc" {
		t.Fatalf("Truncate = %q", got)
	}
}
